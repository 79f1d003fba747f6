package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every fatal error returned by Run matches one of these with
// errors.Is.
var (
	ErrInputNotFound         = errors.New("input not found")
	ErrConfigurationMissing  = errors.New("configuration missing")
	ErrCapabilityUnavailable = errors.New("audio capability unavailable")
	ErrExtractionFailed      = errors.New("extraction failed")
	ErrConcatenationFailed   = errors.New("concatenation failed")
	ErrSilenceFailed         = errors.New("silence generation failed")
	ErrWriteFailed           = errors.New("write failed")
	ErrEmptyTranscript       = errors.New("transcript has no lines")

	// ErrSynthesisUnavailable is never returned by Run; it tags the warning
	// logged when a line falls back to silence.
	ErrSynthesisUnavailable = errors.New("synthesis unavailable")
)

// Stage names the step of the pipeline an error came from.
type Stage string

const (
	StageTranscode  Stage = "transcode"
	StageExtract    Stage = "extract"
	StageSynthesize Stage = "synthesize"
	StageLevel      Stage = "level"
	StageFallback   Stage = "fallback"
	StageComposite  Stage = "composite"
	StageAssemble   Stage = "assemble"
)

// StageError identifies the failing line and stage. Index is -1 for stages
// that are not tied to a line.
type StageError struct {
	Index int
	Stage Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("line %d %s: %v: %v", e.Index, e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageErr(index int, stage Stage, kind, err error) *StageError {
	return &StageError{Index: index, Stage: stage, Kind: kind, Err: err}
}
