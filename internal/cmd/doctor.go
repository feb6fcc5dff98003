package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/checkpoint"
	"github.com/felixgeelhaar/taleyport/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and backend connectivity",
	Long: `Run diagnostics to check that taleyport can reach the backend.

Checks include:
  • Configuration file and home directory
  • Backend reachability and story list
  • Backend contract (embedded OpenAPI document)
  • Session cookie, when one is configured
  • Saved sessions

Examples:
  taleyport doctor
  taleyport doctor --format json`,
	Args: cobra.NoArgs,
	RunE: withContext(runDoctor),
}

var doctorFormat string

// DoctorReport is the result of all health checks.
type DoctorReport struct {
	Checks   []health.Outcome `json:"checks"`
	Issues   []string         `json:"issues"`
	Warnings []string         `json:"warnings"`
	Status   health.Status    `json:"status"`
	Healthy  bool             `json:"healthy"`
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", formatText, formatUsage)

	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	if err := checkFormat(doctorFormat); err != nil {
		return err
	}

	m := health.NewManager().WithTimeout(cctx.Config.Backend.Timeout)
	m.AddChecker(health.NewFileChecker("config-file", configFilePath(cctx, cmd),
		"not found, using defaults (run 'taleyport config init')"))
	m.AddChecker(health.NewDirectoryChecker("home", cctx.Config.Home))

	client, err := cctx.Client()
	if err != nil {
		return err
	}
	m.AddChecker(health.NewBackendChecker(client))
	m.AddChecker(health.NewContractChecker())
	if cctx.Config.Backend.SessionCookie != "" {
		m.AddChecker(health.NewSessionChecker(client))
	}
	m.AddChecker(health.NewCheckerFunc("sessions", func(ctx context.Context) *health.Result {
		return checkSessions(cctx.Config.SessionsDir())
	}))

	outcomes := m.Check(cmd.Context())
	report := &DoctorReport{
		Checks:   outcomes,
		Issues:   []string{},
		Warnings: []string{},
		Status:   health.OverallStatus(outcomes),
	}
	for _, o := range outcomes {
		switch o.Result.Status {
		case health.StatusUnhealthy:
			report.Issues = append(report.Issues, o.Name+": "+o.Result.Message)
		case health.StatusDegraded:
			report.Warnings = append(report.Warnings, o.Name+": "+o.Result.Message)
		}
	}
	report.Healthy = report.Status != health.StatusUnhealthy

	if structured(doctorFormat) {
		if err := printStructured(cctx.Out, doctorFormat, report); err != nil {
			return err
		}
	} else {
		printReport(cctx, report)
	}

	if !report.Healthy {
		return fmt.Errorf("doctor found %d issue(s)", len(report.Issues))
	}
	return nil
}

func checkSessions(dir string) *health.Result {
	states, err := checkpoint.NewManager(dir).States()
	if err != nil {
		return health.Degraded(err.Error()).WithDetail("path", dir)
	}
	resumable := 0
	for _, st := range states {
		if st.Status == checkpoint.StatusRunning || st.Status == checkpoint.StatusStopped {
			resumable++
		}
	}
	return health.Healthy(fmt.Sprintf("%d saved, %d resumable", len(states), resumable)).
		WithDetail("path", dir).
		WithDetail("count", len(states))
}

func printReport(cctx *CommandContext, report *DoctorReport) {
	fmt.Fprintln(cctx.Out, "taleyport diagnostics")
	fmt.Fprintln(cctx.Out)
	for _, o := range report.Checks {
		fmt.Fprintf(cctx.Out, "  %s %-17s %s\n", statusIcon(o.Result.Status), o.Name, o.Result.Message)
	}
	fmt.Fprintln(cctx.Out)

	if len(report.Issues) > 0 {
		fmt.Fprintln(cctx.Out, "Issues:")
		for _, i := range report.Issues {
			fmt.Fprintf(cctx.Out, "  • %s\n", i)
		}
		return
	}
	fmt.Fprintln(cctx.Out, "✓ Everything looks good")
}

func statusIcon(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return "✓"
	case health.StatusDegraded:
		return "⚠"
	default:
		return "✗"
	}
}
