package battle

import "errors"

var (
	// ErrNetworkFailure means a collaborator call failed or answered with a
	// non-success status. The action it belonged to had no effect.
	ErrNetworkFailure = errors.New("network failure")
	// ErrInvalidTransition is returned for requests the current state does
	// not accept. Nothing changed; callers may ignore it.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrIncompleteSetup is returned by Start when a slot is empty.
	ErrIncompleteSetup = errors.New("incomplete setup")
	ErrEmptyRoster     = errors.New("roster is empty")
	ErrUnknownAction   = errors.New("unknown action")
)
