package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List the stories the backend can render",
	Long: `List the stories available on the backend with their scene counts.

Scene numbers passed to 'taleyport video --scenes' must be between 1 and the
story's scene count.

Examples:
  taleyport stories
  taleyport stories --format json`,
	Args: cobra.NoArgs,
	RunE: withContext(runStories),
}

var storiesFormat string

func init() {
	storiesCmd.Flags().StringVar(&storiesFormat, "format", formatText, formatUsage)

	rootCmd.AddCommand(storiesCmd)
}

func runStories(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	if err := checkFormat(storiesFormat); err != nil {
		return err
	}

	client, err := cctx.Client()
	if err != nil {
		return err
	}
	stories, err := client.ListStories(cmd.Context())
	if err != nil {
		return err
	}

	if structured(storiesFormat) {
		return printStructured(cctx.Out, storiesFormat, stories)
	}

	if len(stories) == 0 {
		fmt.Fprintln(cctx.Out, "No stories available.")
		return nil
	}

	rows := make([][]string, 0, len(stories))
	for _, s := range stories {
		rows = append(rows, []string{s.ID, s.Name, strconv.Itoa(s.TotalScenes)})
	}
	fmt.Fprintln(cctx.Out, renderTable([]string{"ID", "Name", "Scenes"}, rows))
	return nil
}
