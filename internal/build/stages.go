package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitekit/internal/logfields"
	"git.home.luguber.info/inful/sitekit/internal/metrics"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names in execution order.
const (
	StageConfigSetup         StageName = "config_setup"
	StageDiscoverCollections StageName = "discover_collections"
	StageLoadEntries         StageName = "load_entries"
	StagePrepareEntries      StageName = "prepare_entries"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// Stage is a discrete unit of work in the build.
type Stage func(ctx context.Context, st *State) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage.
func runStages(ctx context.Context, st *State, defs []StageDef, rec metrics.Recorder, logger *slog.Logger) error {
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			se := newCanceledStageError(def.Name, err)
			st.Report.recordStage(def.Name, 0, se)
			rec.IncStageResult(string(def.Name), metrics.ResultCanceled)
			return se
		}

		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)

		se := classify(def.Name, err)
		st.Report.recordStage(def.Name, dur, se)
		rec.ObserveStageDuration(string(def.Name), dur)
		rec.IncStageResult(string(def.Name), resultLabel(se))

		attrs := []any{logfields.Stage(string(def.Name)), logfields.DurationMS(float64(dur.Milliseconds()))}
		if se == nil {
			logger.Debug("Stage completed", attrs...)
			continue
		}
		if se.Kind == StageErrorWarning {
			logger.Warn("Stage completed with warnings", append(attrs, logfields.Error(se.Err))...)
			continue
		}
		logger.Error("Stage failed", append(attrs, logfields.Error(se.Err))...)
		return se
	}
	return nil
}

func classify(stage StageName, err error) *StageError {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) {
		return newCanceledStageError(stage, err)
	}
	return newFatalStageError(stage, err)
}

func resultLabel(se *StageError) metrics.ResultLabel {
	if se == nil {
		return metrics.ResultSuccess
	}
	switch se.Kind {
	case StageErrorWarning:
		return metrics.ResultWarning
	case StageErrorCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}
