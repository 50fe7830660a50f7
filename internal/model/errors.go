package model

import "github.com/rotisserie/eris"

// ErrValidation marks a record the pipeline refused to construct, e.g. a
// conflict with an unknown severity. Fatal to the record, not the run.
var ErrValidation = eris.New("validation failed")

// ErrFatalIngest marks a mandatory input source that could not be loaded.
// The run aborts rather than producing a partial mentor set.
var ErrFatalIngest = eris.New("fatal ingest failure")
