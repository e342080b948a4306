package submission

import (
	"errors"
	"fmt"
)

// Kind is the closed failure taxonomy of the submission pipeline.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindDependency  Kind = "dependency_fetch"
	KindCreation    Kind = "creation"
	KindImageUpload Kind = "image_upload"
	KindResource    Kind = "resource"
)

// Failure is a tagged submission error. Validation failures carry a
// field-addressable message map; the rest carry a submission-level message.
type Failure struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

func NewValidation(fields map[string]string) *Failure {
	return &Failure{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func NewDependency(msg string, err error) *Failure {
	return &Failure{Kind: KindDependency, Message: msg, Err: err}
}

func NewCreation(msg string, err error) *Failure {
	return &Failure{Kind: KindCreation, Message: msg, Err: err}
}

func NewImageUpload(msg string, err error) *Failure {
	return &Failure{Kind: KindImageUpload, Message: msg, Err: err}
}

func NewResource(msg string) *Failure {
	return &Failure{Kind: KindResource, Message: msg}
}

// KindOf returns the failure kind, or empty when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// FileError reports a single file's failure inside a batch. Batch operations
// never collapse these into one opaque error.
type FileError struct {
	DraftID  string `json:"draft_id,omitempty"`
	FileName string `json:"file_name"`
	Message  string `json:"message"`
}
