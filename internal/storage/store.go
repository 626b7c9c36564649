// Package storage wraps the hosted object store behind a small interface
// and implements the multi-location resolution used to find files that may
// live under any of several historical bucket and path conventions.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an object does not exist at a location,
	// or when every candidate location has been exhausted.
	ErrNotFound = errors.New("object not found")

	// ErrAlreadyExists is returned by Upload when the path is taken and
	// upsert was not requested. Two concurrent uploads to the same path
	// race; the collision fails rather than silently overwriting.
	ErrAlreadyExists = errors.New("object already exists")
)

// ObjectInfo describes a stored object returned by List
type ObjectInfo struct {
	Path        string
	Size        int64
	ContentType string
}

// Object is downloaded content with its media type
type Object struct {
	Data        []byte
	ContentType string
}

// ObjectStore is the object storage collaborator surface: list, download,
// upload, remove, scoped by bucket and path.
type ObjectStore interface {
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Download(ctx context.Context, bucket, path string) (*Object, error)
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string, upsert bool) error
	Remove(ctx context.Context, bucket, path string) error
	ListBuckets(ctx context.Context) ([]string, error)
}
