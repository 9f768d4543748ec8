package models

import (
	"errors"
)

var (
	// ErrProductNotFound is returned when a catalog lookup finds nothing.
	ErrProductNotFound = errors.New("product not found")

	// ErrBatchNotFound is returned when a (product, batch number) pair has
	// no batch row yet.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBarcodeTaken signals a unique-constraint violation on barcode.
	// Two concurrent submissions raced to create the same product; the
	// loser retries as a restock of the winner's row.
	ErrBarcodeTaken = errors.New("barcode already registered")

	// ErrNameMissing means no product name could be extracted even after
	// fallback extraction. The submission is unusable and must be retaken
	// with clearer photos; nothing is persisted.
	ErrNameMissing = errors.New("could not identify product name")
)
