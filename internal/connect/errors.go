package connect

import "errors"

var (
	// ErrAccountNotFound is the expected miss from UserStore.FindByEmail.
	// Distinto de un fallo de store, que es fatal y se propaga.
	ErrAccountNotFound = errors.New("connect: account not found")

	// ErrProviderError indicates the provider returned an error object instead
	// of a profile. The orchestrator rejects silently on it.
	ErrProviderError = errors.New("connect: identity provider error")
)
