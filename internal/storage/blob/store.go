package blob

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/ncecere/attendance/backend/internal/config"
)

var ErrNotFound = errors.New("object not found")

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	Metadata    map[string]string
	Encrypted   bool
}

// Store persists report artifacts.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type sealedStore struct {
	backend Store
	sealer  *sealer
}

// New builds the store selected by reports.storage, wrapped with at-rest
// encryption when reports.encryption_key is set.
func New(ctx context.Context, cfg config.ReportsConfig) (Store, error) {
	var (
		backend Store
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Storage)) {
	case "s3":
		backend, err = newS3Store(ctx, cfg.S3)
	default:
		backend, err = NewLocal(cfg.Local.Directory)
	}
	if err != nil {
		return nil, err
	}
	return Wrap(backend, cfg.EncryptionKey)
}

// Wrap adds AES-GCM sealing to backend. An empty key returns backend unchanged.
func Wrap(backend Store, key string) (Store, error) {
	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return backend, nil
	}
	return &sealedStore{backend: backend, sealer: s}, nil
}

func (s *sealedStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error) {
	sealed, meta, err := s.sealer.seal(body)
	if err != nil {
		return ObjectInfo{}, err
	}
	info, err := s.backend.Put(ctx, key, sealed, PutOptions{
		ContentType: opts.ContentType,
		Metadata:    mergeMetadata(opts.Metadata, meta),
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	info.Encrypted = true
	return info, nil
}

func (s *sealedStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	reader, info, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if !isSealed(info.Metadata) {
		return reader, info, nil
	}
	defer reader.Close()
	plain, err := s.sealer.open(reader)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	info.Size = int64(plain.Len())
	info.Encrypted = true
	return io.NopCloser(plain), info, nil
}

func (s *sealedStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func mergeMetadata(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	merged := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		merged[k] = v
	}
	return merged
}
