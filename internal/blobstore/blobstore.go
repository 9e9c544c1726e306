package blobstore

import (
	"context"
	"errors"
	"path"
	"strings"
)

var ErrInvalidKey = errors.New("invalid blob key")

// Store keeps binary assets under deterministic keys and hands out URLs for them.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	return path.Clean(key) == key && !strings.HasPrefix(key, "../") && key != ".."
}

func joinURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}
