package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	"github.com/felixgeelhaar/taleyport/internal/checkpoint"
	"github.com/felixgeelhaar/taleyport/internal/scene"
	"github.com/felixgeelhaar/taleyport/internal/tui"
	"github.com/felixgeelhaar/taleyport/internal/wizard"
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Generate videos for selected scenes",
	Long: `Submit a video generation request for a set of scenes.

Scene numbers are checked against the story's scene count before anything
is sent. The batch is saved as a session; follow it with --watch or later
with 'taleyport watch --resume <session-id>'.

Examples:
  taleyport video --image-url https://cdn/full.png --face-url https://cdn/face.png \
    --story jungle --scenes 1,2,5 --watch`,
	Args: cobra.NoArgs,
	RunE: withContext(runVideo),
}

var (
	videoImageURL string
	videoFaceURL  string
	videoStory    string
	videoScenes   string
	videoWatch    bool
)

func init() {
	videoCmd.Flags().StringVar(&videoImageURL, "image-url", "", "URL of the full body image")
	videoCmd.Flags().StringVar(&videoFaceURL, "face-url", "", "URL of the close-up image")
	videoCmd.Flags().StringVar(&videoStory, "story", "", "story id (see 'taleyport stories')")
	videoCmd.Flags().StringVar(&videoScenes, "scenes", "", "comma separated scene numbers, e.g. 1,2,5")
	videoCmd.Flags().BoolVar(&videoWatch, "watch", false, "follow the batch until every scene is done")

	rootCmd.AddCommand(videoCmd)
}

func runVideo(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := cctx.Client()
	if err != nil {
		return err
	}

	// The wizard performs the same input checks as the interactive flow.
	p := cctx.Poller(client)
	w := wizard.New(client, p, wizard.WithLogger(cctx.Logger))
	defer w.Close()

	if err := w.SkipUpload(videoImageURL, videoFaceURL); err != nil {
		return err
	}
	if err := w.SkipAudio(); err != nil {
		return err
	}
	stories, err := w.LoadStories(ctx)
	if err != nil {
		return err
	}
	if cctx.Interactive() {
		if err := promptVideoInputs(stories); err != nil {
			return err
		}
	}
	if err := w.SelectStory(videoStory); err != nil {
		return err
	}
	// Syntax is checked here, the range against the story by AddScene.
	sel := scene.NewSelection(0)
	if strings.TrimSpace(videoScenes) != "" {
		if err := sel.ParseList(videoScenes); err != nil {
			return err
		}
	}
	for _, id := range sel.IDs() {
		if _, err := w.AddScene(id); err != nil {
			return err
		}
	}

	req, err := w.VideoRequest()
	if err != nil {
		return err
	}
	batch, err := client.GenerateVideos(ctx, req)
	if err != nil {
		return err
	}

	state := checkpoint.NewState(batch.Clone())
	state.SetMetadata(checkpoint.MetaImageURL, req.ImageURL)
	state.SetMetadata(checkpoint.MetaFaceURL, req.FaceURL)
	state.SetMetadata(checkpoint.MetaBackendURL, client.BaseURL())
	mgr := checkpoint.NewManager(cctx.Config.SessionsDir())

	fmt.Fprintf(cctx.Out, "✓ Video generation started for story %s (%d scenes)\n", batch.StoryID, len(batch.Tasks))
	for _, t := range batch.Tasks {
		fmt.Fprintf(cctx.Out, "  scene %s  task %s  %s\n", t.SceneID, tui.ShortTaskID(t.TaskID), t.Status)
	}
	fmt.Fprintf(cctx.Out, "Session: %s\n", state.SessionID)

	if !videoWatch {
		if _, err := mgr.Save(state); err != nil {
			return err
		}
		fmt.Fprintf(cctx.Out, "Follow with: taleyport watch --resume %s\n", state.SessionID)
		return nil
	}

	session := p.Start(ctx, batch)
	return watchSession(ctx, cctx, session, state, mgr)
}

// promptVideoInputs asks for the story and scenes the flags left out.
func promptVideoInputs(stories []backend.Story) error {
	if videoStory == "" {
		id, err := tui.PromptForStory("Which story?", stories)
		if err != nil {
			return err
		}
		videoStory = id
	}
	if strings.TrimSpace(videoScenes) == "" {
		scenes, err := tui.PromptForString(tui.Prompt{
			Message:     "Scene numbers",
			Placeholder: "1,2,5",
			Required:    true,
		})
		if err != nil {
			return err
		}
		videoScenes = scenes
	}
	return nil
}
