// File: cmd/probe.go
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/observability"
	"github.com/xkilldash9x/pagekit/internal/session"
)

type probeOptions struct {
	css     string
	xpath   string
	url     string
	timeout time.Duration
}

func (o probeOptions) locator() (element.Locator, error) {
	switch {
	case o.css != "" && o.xpath != "":
		return element.Locator{}, fmt.Errorf("--css and --xpath are mutually exclusive")
	case o.xpath != "":
		return element.XPath(o.xpath), nil
	case o.css != "":
		return element.CSS(o.css), nil
	default:
		return element.Locator{}, fmt.Errorf("one of --css or --xpath is required")
	}
}

// newProbeCmd creates the `probe` command, which resolves one locator on a
// page and prints what it matched.
func newProbeCmd() *cobra.Command {
	var opts probeOptions

	cmd := &cobra.Command{
		Use:   "probe --css|--xpath SELECTOR [--url URL]",
		Short: "Resolve a locator on a page and print the matched elements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			loc, err := opts.locator()
			if err != nil {
				return err
			}
			target := opts.url
			if target == "" {
				target = cfg.Target.BaseURL
			}
			if target == "" {
				return fmt.Errorf("no page to probe: pass --url or set target.base_url")
			}

			logger := observability.GetLogger()
			mgr := session.NewManager(logger)
			ctx := cmd.Context()
			s, err := mgr.Start(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
				defer cancel()
				if err := s.Close(closeCtx); err != nil {
					logger.Warn("Session did not close cleanly.", zap.Error(err))
				}
			}()

			if err := s.Driver().Navigate(ctx, target); err != nil {
				return fmt.Errorf("navigation to %s failed: %w", target, err)
			}
			return probe(ctx, cmd, s, loc, opts.timeout)
		},
	}

	cmd.Flags().StringVar(&opts.css, "css", "", "CSS selector to resolve")
	cmd.Flags().StringVar(&opts.xpath, "xpath", "", "XPath expression to resolve")
	cmd.Flags().StringVar(&opts.url, "url", "", "Page to open (default is target.base_url)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "How long to wait for a match (default is waits.presence_timeout)")
	cmd.Flags().String("driver", "", "Browser driver: static, chromedp or playwright")
	bindFlag(cmd, "driver", "browser.driver")
	return cmd
}

func probe(ctx context.Context, cmd *cobra.Command, s *session.Session, loc element.Locator, timeout time.Duration) error {
	out := cmd.OutOrStdout()
	if _, err := s.Action().IsElementsPresent(ctx, loc, timeout); err != nil {
		return err
	}
	handles, desc, err := s.Resolver().ResolveAll(ctx, loc, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d match(es)\n", desc, len(handles))
	for i, h := range handles {
		shown, err := h.IsDisplayed(ctx)
		if err != nil {
			return fmt.Errorf("reading match %d: %w", i, err)
		}
		text, err := h.Text(ctx)
		if err != nil {
			return fmt.Errorf("reading match %d: %w", i, err)
		}
		fmt.Fprintf(out, "[%d] displayed=%t text=%q\n", i, shown, strings.TrimSpace(text))
	}
	if len(handles) == 0 {
		return &element.Error{Kind: element.KindElementNotFound, Element: desc}
	}
	return nil
}
