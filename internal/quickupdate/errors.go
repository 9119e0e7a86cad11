package quickupdate

import (
	"errors"
	"fmt"

	"tracker-backend/internal/intent"
	"tracker-backend/internal/store"
)

// ErrIntentUndetermined is reported when no intent rule matches the
// merged session state.
var ErrIntentUndetermined = errors.New("intent undetermined")

// NotFoundError names the entity and the name that failed to resolve.
type NotFoundError struct {
	Entity string
	Name   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
}

// FailureKind classifies a failed turn for transport mapping.
type FailureKind string

const (
	FailureUndetermined FailureKind = "undetermined"
	FailureNotFound     FailureKind = "not_found"
	FailureValidation   FailureKind = "validation"
	FailureUpstream     FailureKind = "upstream"
	FailureInternal     FailureKind = "internal"
)

// ClassifyFailure maps an error from a turn onto the failure taxonomy.
func ClassifyFailure(err error) FailureKind {
	var nf *NotFoundError
	var ve *store.ValidationError
	var ue *intent.UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIntentUndetermined):
		return FailureUndetermined
	case errors.As(err, &nf), errors.Is(err, store.ErrNotFound):
		return FailureNotFound
	case errors.As(err, &ve):
		return FailureValidation
	case errors.As(err, &ue):
		return FailureUpstream
	}
	return FailureInternal
}

// ValidationFields returns field-level detail carried by err, if any.
func ValidationFields(err error) map[string]string {
	var ve *store.ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
