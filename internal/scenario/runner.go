// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/session"
)

// Status is the outcome of one scenario.
type Status string

const (
	// StatusPassed means the scenario returned no error.
	StatusPassed Status = "passed"
	// StatusFailed means a page or element check failed.
	StatusFailed Status = "failed"
	// StatusError means the scenario could not run to a verdict: the
	// session did not start, the run was cancelled, or the body panicked.
	StatusError Status = "error"
)

// Result records one scenario run.
type Result struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	SessionID string        `json:"session_id,omitempty"`
	Kind      element.Kind  `json:"kind,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Report is the outcome of a whole run, in scenario order.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Results   []Result      `json:"results"`
}

// Count returns how many results have status st.
func (r Report) Count(st Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == st {
			n++
		}
	}
	return n
}

// OK reports whether every scenario passed.
func (r Report) OK() bool { return r.Count(StatusPassed) == len(r.Results) }

// Starter opens sessions. *session.Manager satisfies it.
type Starter interface {
	Start(ctx context.Context, cfg *config.Config) (*session.Session, error)
}

// Runner executes scenarios, each in a fresh session, up to
// runner.parallel at a time.
type Runner struct {
	starter Starter
	cfg     *config.Config
	logger  *zap.Logger
	now     func() time.Time
}

func NewRunner(starter Starter, cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{starter: starter, cfg: cfg, logger: logger.Named("runner"), now: time.Now}
}

// Run executes scenarios and returns their results in the order given. A
// failing scenario does not stop the others; cancelling ctx does.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) Report {
	parallel := r.cfg.Runner.Parallel
	if parallel < 1 {
		parallel = 1
	}
	rep := Report{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
		Results:   make([]Result, len(scenarios)),
	}
	log := r.logger.With(zap.String("run_id", rep.RunID))
	log.Info("Starting run.", zap.Int("scenarios", len(scenarios)), zap.Int("parallel", parallel))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, sc := range scenarios {
		g.Go(func() error {
			rep.Results[i] = r.runOne(ctx, log, sc)
			return nil
		})
	}
	_ = g.Wait()

	rep.Duration = r.now().Sub(rep.StartedAt)
	log.Info("Run finished.",
		zap.Int("passed", rep.Count(StatusPassed)),
		zap.Int("failed", rep.Count(StatusFailed)),
		zap.Int("errors", rep.Count(StatusError)),
		zap.Duration("duration", rep.Duration))
	return rep
}

func (r *Runner) runOne(ctx context.Context, log *zap.Logger, sc Scenario) (res Result) {
	res = Result{Name: sc.Name, StartedAt: r.now()}
	log = log.With(zap.String("scenario", sc.Name))
	defer func() {
		res.Duration = r.now().Sub(res.StartedAt)
	}()

	if err := ctx.Err(); err != nil {
		res.Status, res.Error = StatusError, err.Error()
		return res
	}

	s, err := r.starter.Start(ctx, r.cfg)
	if err != nil {
		log.Error("Could not start session.", zap.Error(err))
		res.Status, res.Error = StatusError, err.Error()
		return res
	}
	res.SessionID = s.ID()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if cerr := s.Close(closeCtx); cerr != nil {
			log.Warn("Session did not close cleanly.", zap.Error(cerr))
		}
	}()

	err = r.guard(ctx, s, sc)
	res.Status, res.Kind = classify(err)
	if err != nil {
		res.Error = err.Error()
		log.Error("Scenario failed.", zap.String("kind", string(res.Kind)), zap.Error(err))
		return res
	}
	log.Info("Scenario passed.")
	return res
}

// guard runs the body and turns a panic into an error.
func (r *Runner) guard(ctx context.Context, s *session.Session, sc Scenario) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Scenario panicked.", zap.String("scenario", sc.Name), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = &panicError{value: p}
		}
	}()
	return sc.Run(ctx, s)
}

type panicError struct{ value any }

func (p *panicError) Error() string { return fmt.Sprintf("scenario panicked: %v", p.value) }

func classify(err error) (Status, element.Kind) {
	if err == nil {
		return StatusPassed, ""
	}
	var p *panicError
	if errors.As(err, &p) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return StatusError, element.KindOf(err)
	}
	if kind := element.KindOf(err); kind != "" {
		return StatusFailed, kind
	}
	return StatusError, ""
}
