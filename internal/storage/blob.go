// Package storage archives raw report uploads so the original file a
// review was generated from can be fetched later.
package storage

import "io"

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error // missing keys are not an error
}
