package scan

import (
	"fmt"
	"net/http"

	"UrbanScout/pkg/response"
)

var (
	ErrScanNotFound = response.NewError(http.StatusNotFound, "scan not found")
)

// Pipeline stages, in execution order. A failed scan reports the first stage
// that could not complete.
const (
	StageAcquiring  = "acquiring"
	StageDetecting  = "detecting"
	StageAnnotating = "annotating"
	StageAnalyzing  = "analyzing"
	StagePersisting = "persisting"
)

// StageError wraps the underlying failure with the pipeline stage it occurred
// in, so callers can tell a missing image apart from a dead detector.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("scan failed at %s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

func FailStage(stage string, cause error) *StageError {
	return &StageError{Stage: stage, Cause: cause}
}
