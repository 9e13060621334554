package core

import "errors"

var (
	// ErrSceneNotFound is returned when a transition names a scene that is not
	// registered. It is wrapped together with the scene name.
	ErrSceneNotFound = errors.New("scene not found")

	// ErrMissingUserID is returned when a Stage operation receives a context
	// without a user id.
	ErrMissingUserID = errors.New("context has no user id")
)
