package cmd

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/checkpoint"
	"github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/metrics"
	"github.com/felixgeelhaar/taleyport/internal/poller"
	"github.com/felixgeelhaar/taleyport/internal/progress"
	"github.com/felixgeelhaar/taleyport/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [session-id]",
	Short: "Follow a video batch until every scene is done",
	Long: `Resume polling a saved video batch.

Every batch started with 'taleyport video' or the wizard is saved under
<home>/sessions. A unique prefix of the session id is enough.

Examples:
  taleyport watch --resume 3f2a
  taleyport watch 3f2a9c1e --plain`,
	Args: cobra.MaximumNArgs(1),
	RunE: withContext(runWatch),
}

var watchResume string

func init() {
	watchCmd.Flags().StringVar(&watchResume, "resume", "", "session id to resume")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	id := watchResume
	if id == "" && len(args) == 1 {
		id = args[0]
	}
	if id == "" {
		return fmt.Errorf("missing argument: pass a session id or --resume (see 'taleyport sessions list')")
	}

	mgr := checkpoint.NewManager(cctx.Config.SessionsDir())
	state, err := mgr.Load(id)
	if err != nil {
		return err
	}
	batch, err := state.Batch()
	if err != nil {
		return err
	}

	if !cctx.Interactive() {
		progress.NewIndicator(progress.Config{Writer: cctx.Out}).PrintResumeInfo(state)
	}

	client, err := cctx.Client()
	if err != nil {
		return err
	}
	state.Status = checkpoint.StatusRunning
	session := cctx.Poller(client).Start(cmd.Context(), batch)
	return watchSession(cmd.Context(), cctx, session, state, mgr)
}

// watchSession follows session until it ends or the user quits, saving the
// batch to state after every poll.
func watchSession(ctx context.Context, cctx *CommandContext, session *poller.Session, state *checkpoint.State, mgr *checkpoint.Manager) error {
	logger := cctx.Logger.WithSession(state.SessionID, state.StoryID)

	if addr := cctx.Config.Metrics.Addr; addr != "" {
		srv, err := metrics.Serve(ctx, addr, metrics.Handler())
		if err != nil {
			logger.WithError(err).Warn("metrics endpoint disabled", "addr", addr)
		} else {
			defer srv.Close()
			logger.Info("serving metrics", "addr", srv.Addr())
		}
	}

	save := func() {
		if _, err := mgr.Save(state); err != nil {
			logger.WithError(err).Warn("failed to save session")
		}
	}
	save()

	// Resumed sessions keep counting from the stored attempts.
	base := state.Attempts
	events := tee(session.Updates(), func(ev poller.Event) {
		state.Update(ev.Batch, base+ev.Attempt)
		save()
	})

	quit := false
	if cctx.Interactive() {
		final, err := tui.RunStatus(ctx, tui.NewStatusModel(session, session.Snapshot()).WithEvents(events))
		if err != nil {
			session.Stop()
			return err
		}
		quit = final.Quitting()
		session.Stop()
		for range events {
		}
	} else {
		ind := progress.NewIndicator(progress.Config{Writer: cctx.Out})
		ind.Observe(session.Snapshot())
		for ev := range events {
			if ev.Err != nil {
				ind.ObserveError(ev.Attempt, ev.Err)
				continue
			}
			ind.Observe(ev.Batch)
		}
		ind.Observe(session.Snapshot())
		ind.PrintSummary()
	}

	state.Update(session.Snapshot(), base+session.Attempts())
	sessionErr := session.Err()
	if sessionErr == nil {
		state.Status = checkpoint.StatusCompleted
	} else {
		state.Status = checkpoint.StatusStopped
	}
	save()

	if state.Status == checkpoint.StatusCompleted {
		logger.Info("batch finished", "attempts", state.Attempts)
		return nil
	}

	fmt.Fprintf(cctx.Out, "\nResume with: taleyport watch --resume %s\n", state.SessionID)
	switch {
	case quit:
		return nil
	case stderrors.Is(sessionErr, poller.ErrStopped):
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return errors.Wrap(errors.ErrCodePollMaxAttempts, "videos still running", sessionErr)
	}
}

// tee calls fn for every event and forwards it. Like the session channel,
// the forwarded channel keeps only the latest event for slow readers.
func tee(in <-chan poller.Event, fn func(poller.Event)) <-chan poller.Event {
	out := make(chan poller.Event, 1)
	go func() {
		defer close(out)
		for ev := range in {
			fn(ev)
			select {
			case out <- ev:
			default:
				select {
				case <-out:
				default:
				}
				out <- ev
			}
		}
	}()
	return out
}
