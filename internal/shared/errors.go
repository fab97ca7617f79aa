package shared

import "errors"

var (
	// ErrUnauthenticated indicates a request without a valid caller.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller lacks access to the resource.
	ErrForbidden = errors.New("forbidden")
)
