package rag

import (
	"errors"
	"fmt"
)

// Stage tags which remote call failed.
type Stage string

const (
	StageEmbedding  Stage = "embedding"
	StageRetrieval  Stage = "retrieval"
	StageGeneration Stage = "generation"
	StageImport     Stage = "import"
)

var (
	ErrEmbedding  = errors.New("embedding failed")
	ErrRetrieval  = errors.New("retrieval failed")
	ErrGeneration = errors.New("generation failed")
	ErrImport     = errors.New("import failed")
)

// Error carries the upstream status and body of a failed remote call.
// Status is 0 when the call never got an HTTP response.
type Error struct {
	Stage  Stage
	Status int
	Body   string
	Err    error
}

func NewError(stage Stage, status int, body string, err error) *Error {
	return &Error{Stage: stage, Status: status, Body: body, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Stage)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrEmbedding:
		return e.Stage == StageEmbedding
	case ErrRetrieval:
		return e.Stage == StageRetrieval
	case ErrGeneration:
		return e.Stage == StageGeneration
	case ErrImport:
		return e.Stage == StageImport
	}
	return false
}

// asStage keeps an existing *Error as is and tags anything else with stage.
func asStage(stage Stage, err error) error {
	var rerr *Error
	if errors.As(err, &rerr) {
		return err
	}
	return NewError(stage, 0, "", err)
}
