// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/observability"
	"github.com/xkilldash9x/pagekit/internal/report"
	"github.com/xkilldash9x/pagekit/internal/scenario"
	"github.com/xkilldash9x/pagekit/internal/session"
)

// newRunCmd creates the `run` command.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios, all of them when none is named",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			scs, err := scenario.Builtin().Select(args...)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			mgr := session.NewManager(logger)
			defer func() {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 30*time.Second)
				defer cancel()
				if err := mgr.Shutdown(ctx); err != nil {
					logger.Warn("Session manager did not shut down cleanly.", zap.Error(err))
				}
			}()

			rep := scenario.NewRunner(mgr, cfg, logger).Run(cmd.Context(), scs)
			printSummary(cmd.OutOrStdout(), rep)

			if err := report.WriteFiles(rep, cfg.Runner.ReportJSON, cfg.Runner.ReportJUnit); err != nil {
				return err
			}
			if !rep.OK() {
				return fmt.Errorf("%d of %d scenarios did not pass", len(rep.Results)-rep.Count(scenario.StatusPassed), len(rep.Results))
			}
			return nil
		},
	}

	cmd.Flags().Int("parallel", 0, "Number of scenarios to run at once")
	cmd.Flags().String("report-json", "", "Write the run report as JSON to this path")
	cmd.Flags().String("report-junit", "", "Write the run report as JUnit XML to this path")
	cmd.Flags().String("driver", "", "Browser driver: static, chromedp or playwright")
	cmd.Flags().String("base-url", "", "Base URL of the application under test")
	bindFlag(cmd, "parallel", "runner.parallel")
	bindFlag(cmd, "report-json", "runner.report_json")
	bindFlag(cmd, "report-junit", "runner.report_junit")
	bindFlag(cmd, "driver", "browser.driver")
	bindFlag(cmd, "base-url", "target.base_url")
	return cmd
}

func printSummary(w io.Writer, rep scenario.Report) {
	for _, res := range rep.Results {
		line := fmt.Sprintf("%-6s %s (%s)", statusLabel(res.Status), res.Name, res.Duration.Round(time.Millisecond))
		if res.Error != "" {
			line += ": " + res.Error
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d errors in %s\n",
		rep.Count(scenario.StatusPassed), rep.Count(scenario.StatusFailed), rep.Count(scenario.StatusError),
		rep.Duration.Round(time.Millisecond))
}

func statusLabel(st scenario.Status) string {
	switch st {
	case scenario.StatusPassed:
		return "PASS"
	case scenario.StatusFailed:
		return "FAIL"
	default:
		return "ERROR"
	}
}
