package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/2beens/pushpullrun/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var _ Store = (*DiskStore)(nil)

// DiskStore writes blobs under rootPath, the files are expected to be served
// by the http server under baseURL.
type DiskStore struct {
	rootPath string
	baseURL  string
	mutex    sync.Mutex
}

func NewDiskStore(rootPath, baseURL string) (*DiskStore, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create root dir: %w", err)
	}
	return &DiskStore{
		rootPath: rootPath,
		baseURL:  baseURL,
	}, nil
}

func (ds *DiskStore) RootPath() string {
	return ds.rootPath
}

func (ds *DiskStore) Put(ctx context.Context, key string, data []byte, contentType string) (_ string, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "blobstore.disk.put")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	span.SetAttributes(attribute.String("blob.key", key))
	span.SetAttributes(attribute.Int("blob.size", len(data)))

	if !validKey(key) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	filePath := filepath.Join(ds.rootPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}

	// same key is overwritten, write to a temp file first so readers never see half a file
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename blob: %w", err)
	}

	log.Debugf("disk blob store: saved %s [%s, %d bytes]", key, contentType, len(data))
	return joinURL(ds.baseURL, key), nil
}
