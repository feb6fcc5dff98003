package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/wizard"
)

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Generate the narration audio for a story",
	Long: `Generate the story narration with the child's name.

Examples:
  taleyport audio --kid-name Aarav --story jungle --language Hindi --gender boy
  taleyport audio --kid-name Mia --story space --gender girl --format json`,
	Args: cobra.NoArgs,
	RunE: withContext(runAudio),
}

var (
	audioForm   = wizard.DefaultAudioForm()
	audioFormat string
)

func init() {
	audioCmd.Flags().StringVar(&audioForm.KidName, "kid-name", "", "child's name used in the narration")
	audioCmd.Flags().StringVar(&audioForm.Language, "language", audioForm.Language, "narration language: English or Hindi")
	audioCmd.Flags().StringVar(&audioForm.Gender, "gender", audioForm.Gender, "child's gender: boy or girl")
	audioCmd.Flags().StringVar(&audioForm.StoryID, "story", "", "story id (see 'taleyport stories')")
	audioCmd.Flags().StringVar(&audioFormat, "format", formatText, formatUsage)

	rootCmd.AddCommand(audioCmd)
}

func runAudio(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	if err := checkFormat(audioFormat); err != nil {
		return err
	}
	if err := audioForm.Validate(); err != nil {
		return err
	}

	client, err := cctx.Client()
	if err != nil {
		return err
	}
	resp, err := client.GenerateAudio(cmd.Context(), audioForm.Request())
	if err != nil {
		return err
	}

	if structured(audioFormat) {
		out := map[string]any{
			"audio_url":  resp.AudioURL,
			"story_name": resp.StoryName,
		}
		for k, v := range resp.Extra {
			out[k] = v
		}
		return printStructured(cctx.Out, audioFormat, out)
	}

	fmt.Fprintln(cctx.Out, "✓ Audio generated")
	if resp.StoryName != "" {
		fmt.Fprintf(cctx.Out, "  story: %s\n", resp.StoryName)
	}
	fmt.Fprintf(cctx.Out, "  audio: %s\n", resp.AudioURL)

	keys := make([]string, 0, len(resp.Extra))
	for k := range resp.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cctx.Out, "  %s: %v\n", k, resp.Extra[k])
	}
	return nil
}
