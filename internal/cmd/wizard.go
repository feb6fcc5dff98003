package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	"github.com/felixgeelhaar/taleyport/internal/checkpoint"
	"github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/poller"
	"github.com/felixgeelhaar/taleyport/internal/tui"
	"github.com/felixgeelhaar/taleyport/internal/wizard"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive upload, audio and video wizard",
	Long: `Walk through the three steps interactively:

  1 Upload Image    full body photo and a close-up of the face
  2 Generate Audio  narration with the child's name, or skip
  3 Generate Video  pick a story and scenes, then follow the videos

Press c in the status view to copy the finished video URLs.`,
	Args: cobra.NoArgs,
	RunE: withContext(runWizard),
}

func init() {
	rootCmd.AddCommand(wizardCmd)
}

func runWizard(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	if !cctx.Interactive() {
		return errors.New(errors.ErrCodeWizardInvalidForm, "the wizard needs an interactive terminal").
			WithSuggestion("Use 'taleyport upload', 'taleyport audio' and 'taleyport video --watch' in scripts")
	}

	client, err := cctx.Client()
	if err != nil {
		return err
	}

	var state *checkpoint.State
	w := wizard.New(client, cctx.Poller(client),
		wizard.WithLogger(cctx.Logger),
		wizard.WithSessionHook(func(s *poller.Session, req backend.VideoRequest) {
			state = checkpoint.NewState(s.Snapshot())
			state.SetMetadata(checkpoint.MetaImageURL, req.ImageURL)
			state.SetMetadata(checkpoint.MetaFaceURL, req.FaceURL)
			state.SetMetadata(checkpoint.MetaBackendURL, client.BaseURL())
		}),
	)
	defer w.Close()

	session, err := tui.RunWizard(cmd.Context(), w, cctx.Out)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("video submission did not start a session")
	}

	mgr := checkpoint.NewManager(cctx.Config.SessionsDir())
	return watchSession(cmd.Context(), cctx, session, state, mgr)
}
