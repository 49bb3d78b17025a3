package types

import "fmt"

// ValidationError fails a whole batch before any network or IO work
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// FetchError fails one item; the rest of the batch continues
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TranscriptionError degrades the item to a sentinel transcript, it
// never fails the item
type TranscriptionError struct {
	Status int
	Body   string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription service returned %d: %s", e.Status, e.Body)
}

// StoreError is a row-store insert/select failure
type StoreError struct {
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// StorageError is an object-store upload failure; the affected frame
// row is still persisted with a null URL
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage upload %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
