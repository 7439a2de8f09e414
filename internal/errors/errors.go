// internal/errors/errors.go
package errors

import "fmt"

// ErrInvalidRepoFormat is returned when a repository identifier is not in
// 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrUnknownAction is returned by the management API when the requested
// action is not one of add/remove/enable/disable.
type ErrUnknownAction struct {
	Action string
}

func (e *ErrUnknownAction) Error() string {
	return fmt.Sprintf("unknown management action: %q", e.Action)
}
