package services

import (
	"errors"
	"fmt"

	"github.com/sivacor/sivacor-cli/pkg/domain"
)

var ErrNotFound = errors.New("not found")

// AmbiguousMatchError is returned when a user search matches several
// accounts and none of them has the searched login.
type AmbiguousMatchError struct {
	Query      string
	Candidates []domain.User
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("user search %q matched %d users; search by their exact login", e.Query, len(e.Candidates))
}

// UnknownSlotError is a download request naming no artifact slot.
type UnknownSlotError struct {
	Name string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("unknown file type %q", e.Name)
}

// SlotUnavailableError is a download request for a slot the submission has
// no file for.
type SlotUnavailableError struct {
	Kind domain.ArtifactKind
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("file '%s' not available for download", e.Kind.Spec().DisplayName)
}
