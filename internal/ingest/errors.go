package ingest

import (
	"errors"
	"fmt"
)

// ErrUnknownRun means a resume was requested for a run the ledger has no
// batches for.
var ErrUnknownRun = errors.New("no ledger entries for run")

// SetupError means the run failed before any batch was submitted.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("ingest setup (%s): %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// BatchError identifies the first batch of a stage that did not commit.
// Batches before it are committed; it and everything after it are not
// (with concurrent writers, later batches may have committed and are
// recorded in the ledger).
type BatchError struct {
	Stage    string
	Index    int
	FirstKey string
	LastKey  string
	Size     int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s batch %d [%s .. %s] (%d records): %v",
		e.Stage, e.Index, e.FirstKey, e.LastKey, e.Size, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
