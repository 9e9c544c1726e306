package docstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var ErrNotFound = errors.New("document not found")

// Path is a slash separated document path, e.g. users/{uid}/workouts/{wid}.
// Odd segment counts name collections, even ones name documents.
type Path string

func Doc(segments ...string) Path {
	return Path(strings.Join(segments, "/"))
}

// Parent returns the collection the document lives in.
func (p Path) Parent() Path {
	i := strings.LastIndex(string(p), "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// ID returns the last path segment.
func (p Path) ID() string {
	i := strings.LastIndex(string(p), "/")
	return string(p[i+1:])
}

func (p Path) String() string {
	return string(p)
}

type Query struct {
	Collection Path
	// OrderBy names a top level RFC 3339 timestamp field of the documents.
	// Empty means no particular order.
	OrderBy    string
	Descending bool
}

type Store interface {
	// Set upserts the whole document.
	Set(ctx context.Context, path Path, data []byte) error
	Get(ctx context.Context, path Path) ([]byte, error)
	// Delete removes the document, deleting a missing document is not an error.
	Delete(ctx context.Context, path Path) error
	Query(ctx context.Context, q Query) ([][]byte, error)
}

// orderKey reads a timestamp field from a JSON document.
func orderKey(data []byte, field string) (time.Time, bool) {
	res := gjson.GetBytes(data, field)
	if res.Type != gjson.String {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, res.String())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
