package resolver

import (
	"errors"
	"fmt"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
)

// Stage names the step of a run that needed authentication.
type Stage string

const (
	StageRootItem  Stage = "root-item"
	StageRootData  Stage = "root-data"
	StageDependent Stage = "dependent-item"
	StageLayer     Stage = "dependent-layer"
	StageWebMap    Stage = "web-map"
)

// Notice is the message shown to a user whose run stopped at s.
func (s Stage) Notice() string {
	switch s {
	case StageRootItem:
		return "Authentication required."
	case StageRootData:
		return "This item appears to be private."
	case StageDependent:
		return "Some dependent items are private."
	case StageLayer:
		return "Some dependent layers are private."
	case StageWebMap:
		return "This web map is private."
	default:
		return "Authentication required."
	}
}

// AuthError aborts a run when a catalog read needs a token. The partially
// built graph is discarded.
type AuthError struct {
	Stage  Stage
	ItemID string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s (%s, item %s): %v", e.Stage.Notice(), e.Stage, e.ItemID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Notice is the stage's user-facing message.
func (e *AuthError) Notice() string { return e.Stage.Notice() }

// AsAuthError returns the AuthError in err's chain, if any.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// authAbort wraps err as an AuthError at stage when it requires authentication.
func authAbort(stage Stage, itemID string, err error) error {
	if errors.Is(err, catalog.ErrAuthRequired) {
		return &AuthError{Stage: stage, ItemID: itemID, Err: err}
	}
	return nil
}
