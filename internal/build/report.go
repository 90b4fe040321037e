package build

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitekit/internal/content"
	"git.home.luguber.info/inful/sitekit/internal/metrics"
	"git.home.luguber.info/inful/sitekit/internal/version"
)

// Outcome is the final result of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report captures what a build did. Warnings and Errors are rendered strings
// so the report serializes cleanly.
type Report struct {
	ID             string                       `json:"id"`
	Version        string                       `json:"version"`
	Start          time.Time                    `json:"start"`
	End            time.Time                    `json:"end"`
	Outcome        Outcome                      `json:"outcome"`
	Collections    []string                     `json:"collections"`
	Entries        int                          `json:"entries"`
	Prepared       int                          `json:"prepared"`
	SkippedDrafts  int                          `json:"skipped_drafts"`
	InvalidEntries int                          `json:"invalid_entries"`
	Unresolved     int                          `json:"unresolved_references"`
	StageDurations map[StageName]time.Duration  `json:"stage_durations"`
	StageResults   map[StageName]StageErrorKind `json:"stage_errors,omitempty"`
	Warnings       []string                     `json:"warnings,omitempty"`
	Errors         []string                     `json:"errors,omitempty"`
	Diagnostics    []content.Diagnostic         `json:"diagnostics,omitempty"`
}

func newReport() *Report {
	return &Report{
		ID:             uuid.NewString(),
		Version:        version.Version,
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageErrorKind),
	}
}

// StageRan reports whether the named stage was executed.
func (r *Report) StageRan(name StageName) bool {
	_, ok := r.StageDurations[name]
	return ok
}

func (r *Report) recordStage(name StageName, d time.Duration, se *StageError) {
	if se != nil && se.Kind == StageErrorCanceled {
		r.StageResults[name] = se.Kind
		r.Errors = append(r.Errors, se.Error())
		return
	}
	r.StageDurations[name] = d
	if se == nil {
		return
	}
	r.StageResults[name] = se.Kind
	if se.Kind == StageErrorWarning {
		r.Warnings = append(r.Warnings, se.Error())
		return
	}
	r.Errors = append(r.Errors, se.Error())
}

func (r *Report) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// finish derives the outcome and records build-level metrics.
func (r *Report) finish(err error, rec metrics.Recorder) {
	r.End = time.Now()
	var se *StageError
	switch {
	case err == nil && len(r.Warnings) == 0 && len(r.Diagnostics) == 0:
		r.Outcome = OutcomeSuccess
	case err == nil:
		r.Outcome = OutcomeWarning
	case errors.As(err, &se) && se.Kind == StageErrorCanceled:
		r.Outcome = OutcomeCanceled
	default:
		r.Outcome = OutcomeFailed
	}
	rec.ObserveBuildDuration(r.End.Sub(r.Start))
	rec.IncBuildOutcome(metrics.BuildOutcomeLabel(r.Outcome))
}
