package queue

import "errors"

var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("queue storage cannot be nil")

	// ErrHandlerNil is returned when a worker is built without a handler.
	ErrHandlerNil = errors.New("queue batch handler cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("queue payload cannot be nil")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("queue worker already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("queue worker not started")
)
