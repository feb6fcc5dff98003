package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/checkpoint"
	"github.com/felixgeelhaar/taleyport/internal/tui"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved video batches",
	Long: `List, inspect and delete the video batches saved under <home>/sessions.

A unique prefix of a session id is accepted wherever an id is expected.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  withContext(runSessionsList),
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the tasks of a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(runSessionsShow),
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(runSessionsDelete),
}

var (
	sessionsFormat string
	sessionsForce  bool
)

func init() {
	sessionsListCmd.Flags().StringVar(&sessionsFormat, "format", formatText, formatUsage)
	sessionsShowCmd.Flags().StringVar(&sessionsFormat, "format", formatText, formatUsage)
	sessionsDeleteCmd.Flags().BoolVarP(&sessionsForce, "force", "f", false, "delete without asking")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	if err := checkFormat(sessionsFormat); err != nil {
		return err
	}

	states, err := checkpoint.NewManager(cctx.Config.SessionsDir()).States()
	if err != nil {
		return err
	}

	if structured(sessionsFormat) {
		return printStructured(cctx.Out, sessionsFormat, states)
	}
	if len(states) == 0 {
		fmt.Fprintln(cctx.Out, "No saved sessions.")
		return nil
	}

	rows := make([][]string, 0, len(states))
	for _, st := range states {
		rows = append(rows, []string{
			st.SessionID,
			st.StoryID,
			st.Status,
			st.Counts().String(),
			st.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	fmt.Fprintln(cctx.Out, renderTable([]string{"Session", "Story", "Status", "Progress", "Updated"}, rows))
	return nil
}

func runSessionsShow(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	if err := checkFormat(sessionsFormat); err != nil {
		return err
	}

	st, err := checkpoint.NewManager(cctx.Config.SessionsDir()).Load(args[0])
	if err != nil {
		return err
	}
	if structured(sessionsFormat) {
		return printStructured(cctx.Out, sessionsFormat, st)
	}

	fmt.Fprintf(cctx.Out, "Session:  %s\n", st.SessionID)
	fmt.Fprintf(cctx.Out, "Story:    %s\n", st.StoryID)
	fmt.Fprintf(cctx.Out, "Status:   %s\n", st.Status)
	fmt.Fprintf(cctx.Out, "Progress: %s after %d checks\n", st.Counts(), st.Attempts)
	fmt.Fprintf(cctx.Out, "Started:  %s\n", st.StartedAt.Local().Format(time.DateTime))
	if u, ok := st.GetMetadata(checkpoint.MetaBackendURL); ok {
		fmt.Fprintf(cctx.Out, "Backend:  %s\n", u)
	}

	rows := make([][]string, 0, len(st.Tasks))
	for _, t := range st.Tasks {
		url := t.VideoURL
		if url == "" {
			url = "-"
		}
		rows = append(rows, []string{t.SceneID, tui.ShortTaskID(t.TaskID), tui.StatusLabel(t.Status), url})
	}
	fmt.Fprintln(cctx.Out, renderTable([]string{"Scene", "Task ID", "Status", "Video URL"}, rows))
	return nil
}

func runSessionsDelete(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	mgr := checkpoint.NewManager(cctx.Config.SessionsDir())
	st, err := mgr.Load(args[0])
	if err != nil {
		return err
	}

	if !sessionsForce {
		if !cctx.Interactive() {
			return fmt.Errorf("required flag --force when not running interactively")
		}
		ok, err := tui.PromptForConfirmation(
			fmt.Sprintf("Delete session %s (%s, %s)?", st.SessionID, st.StoryID, st.Counts()), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cctx.Out, "Cancelled.")
			return nil
		}
	}

	if err := mgr.Delete(st.SessionID); err != nil {
		return err
	}
	fmt.Fprintf(cctx.Out, "✓ Deleted session %s\n", st.SessionID)
	return nil
}
