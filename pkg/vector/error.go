package vector

import "errors"

var (
	// ErrNotFound is returned when a collection is not found in the vector store.
	ErrNotFound = errors.New("collection not found")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrTextQueryUnsupported is returned by QueryText on drivers that do
	// not embed server-side.
	ErrTextQueryUnsupported = errors.New("text query not supported by this driver")

	// ErrDimensionMismatch is returned when a chunk embedding does not match
	// the collection's configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimensions do not match collection")
)
