package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested document does not exist.
var ErrNotFound = errors.New("not found")

// DecodeError means the stored document does not match the expected schema.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodingError is a local failure to serialize a record (or image) before anything was written.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode: %s", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// StoreError wraps a rejection from the document or blob store backend.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}

func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
