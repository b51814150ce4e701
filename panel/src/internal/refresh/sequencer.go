package refresh

import (
	"context"
	"time"

	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/executor"
	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// SuccessMessage is shown when every strict step completed
	SuccessMessage = "USB refreshed successfully!"
	// ErrorPrefix starts the message shown for a strict step failure
	ErrorPrefix = "Error: "
)

// Recorder receives per-step and per-run observations
type Recorder interface {
	ObserveStep(step string, policy Policy, duration time.Duration, err error)
	ObserveRun(ok bool)
}

// StepResult is the outcome of one executed step. Err is nil on success.
type StepResult struct {
	Step     Step
	Err      error
	Duration time.Duration
}

// Failed reports whether the step's operation failed
func (r StepResult) Failed() bool {
	return r.Err != nil
}

// Result is the outcome of a refresh run
type Result struct {
	RunID string
	Steps []StepResult
	// Err is the first strict failure, nil when the run succeeded
	Err error
}

// OK reports whether every strict step completed
func (r Result) OK() bool {
	return r.Err == nil
}

// Message is the user-visible outcome of the run
func (r Result) Message() string {
	if r.OK() {
		return SuccessMessage
	}
	return ErrorPrefix + r.Err.Error()
}

// Sequencer runs the refresh steps in order.
// Concurrent runs are not coordinated with each other.
type Sequencer struct {
	exec     executor.Executor
	steps    []Step
	logger   *shared.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// NewSequencer creates a sequencer for steps. A nil recorder disables observations.
func NewSequencer(exec executor.Executor, steps []Step, logger *shared.Logger, recorder Recorder) *Sequencer {
	if logger == nil {
		logger = shared.DefaultLogger
	}
	return &Sequencer{
		exec:     exec,
		steps:    steps,
		logger:   logger,
		tracer:   otel.Tracer("usbrefresh/refresh"),
		recorder: recorder,
	}
}

// Steps returns a copy of the configured steps
func (s *Sequencer) Steps() []Step {
	steps := make([]Step, len(s.steps))
	copy(steps, s.steps)
	return steps
}

// Run executes the steps synchronously, stopping at the first strict failure.
// Cancelling ctx does not interrupt the run: once the gadget is unloaded
// the sequence must reach the reload step.
func (s *Sequencer) Run(ctx context.Context) Result {
	result := Result{RunID: uuid.New().String()}
	logger := s.logger.WithFields(map[string]interface{}{"run": result.RunID})

	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), "refresh.run")
	defer span.End()
	span.SetAttributes(attribute.String("refresh.run_id", result.RunID))

	logger.Info("Starting USB refresh (%d steps)", len(s.steps))

	for _, step := range s.steps {
		stepResult := s.runStep(ctx, step)
		result.Steps = append(result.Steps, stepResult)

		if !stepResult.Failed() {
			logger.Debug("Step %s completed in %s", step.Name, stepResult.Duration)
			continue
		}

		if step.Policy == Tolerant {
			logger.Warn("Ignoring %s failure: %v", step.Name, stepResult.Err)
			continue
		}

		logger.Error("Step %s failed: %v", step.Name, stepResult.Err)
		result.Err = stepResult.Err
		break
	}

	if result.OK() {
		logger.Info("USB refresh completed")
	} else {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}

	if s.recorder != nil {
		s.recorder.ObserveRun(result.OK())
	}
	return result
}

func (s *Sequencer) runStep(ctx context.Context, step Step) StepResult {
	ctx, span := s.tracer.Start(ctx, "refresh.step."+step.Name)
	defer span.End()

	span.SetAttributes(
		attribute.String("step", step.Name),
		attribute.String("policy", step.Policy.String()),
		attribute.String("command", executor.CommandLine(step.Command, step.Args...)),
	)

	start := time.Now()
	err := s.exec.Run(ctx, step.Command, step.Args...)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		if step.Policy == Strict {
			span.SetStatus(codes.Error, err.Error())
		}
	}

	if s.recorder != nil {
		s.recorder.ObserveStep(step.Name, step.Policy, duration, err)
	}

	return StepResult{Step: step, Err: err, Duration: duration}
}
