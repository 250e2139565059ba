package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/phi"
)

// DiskBlobStore persists blobs on the local filesystem. Each blob is a
// content file named by its ID plus a sidecar <id>.json with metadata.
// When an encryptor is set, content is sealed at rest; metadata sidecars
// stay plaintext so listing does not need the key.
type DiskBlobStore struct {
	dir string
	enc *phi.Encryptor
}

func NewDiskBlobStore(dir string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create dir: %w", err)
	}
	return &DiskBlobStore{dir: dir}, nil
}

// NewEncryptedDiskBlobStore wraps the on-disk content with AES-GCM.
// Hashes in metadata are computed over the plaintext, so integrity checks
// against the original upload still work.
func NewEncryptedDiskBlobStore(dir string, enc *phi.Encryptor) (*DiskBlobStore, error) {
	s, err := NewDiskBlobStore(dir)
	if err != nil {
		return nil, err
	}
	s.enc = enc
	return s, nil
}

func (s *DiskBlobStore) contentPath(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *DiskBlobStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *DiskBlobStore) Upload(_ context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	if err := validateMeta(&meta); err != nil {
		return nil, err
	}
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}

	h := sha256.Sum256(data)
	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	stored := data
	if s.enc != nil {
		stored, err = s.enc.SealBytes(data)
		if err != nil {
			return nil, fmt.Errorf("blobstore: seal content: %w", err)
		}
	}

	if err := os.WriteFile(s.contentPath(meta.ID), stored, 0o644); err != nil {
		return nil, fmt.Errorf("blobstore: write content: %w", err)
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("blobstore: encode metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), raw, 0o644); err != nil {
		os.Remove(s.contentPath(meta.ID))
		return nil, fmt.Errorf("blobstore: write metadata: %w", err)
	}

	out := meta
	return &out, nil
}

func (s *DiskBlobStore) readMeta(id string) (*BlobMetadata, error) {
	raw, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("blobstore: read metadata: %w", err)
	}
	var meta BlobMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("blobstore: decode metadata %s: %w", id, err)
	}
	return &meta, nil
}

func (s *DiskBlobStore) Download(_ context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	meta, err := s.readMeta(id)
	if err != nil {
		return nil, nil, err
	}

	if s.enc != nil {
		stored, err := os.ReadFile(s.contentPath(id))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil, ErrBlobNotFound
			}
			return nil, nil, fmt.Errorf("blobstore: read content: %w", err)
		}
		data, err := s.enc.OpenBytes(stored)
		if err != nil {
			return nil, nil, fmt.Errorf("blobstore: open sealed content %s: %w", id, err)
		}
		return io.NopCloser(bytes.NewReader(data)), meta, nil
	}

	f, err := os.Open(s.contentPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("blobstore: open content: %w", err)
	}
	return f, meta, nil
}

func (s *DiskBlobStore) Delete(_ context.Context, id string) error {
	if _, err := s.readMeta(id); err != nil {
		return err
	}
	if err := os.Remove(s.contentPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blobstore: remove content: %w", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil {
		return fmt.Errorf("blobstore: remove metadata: %w", err)
	}
	return nil
}

func (s *DiskBlobStore) GetMetadata(_ context.Context, id string) (*BlobMetadata, error) {
	return s.readMeta(id)
}

func (s *DiskBlobStore) ListByPatient(_ context.Context, patientID, category string, limit, offset int) ([]*BlobMetadata, int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, 0, fmt.Errorf("blobstore: read dir: %w", err)
	}

	var matched []*BlobMetadata
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		meta, err := s.readMeta(id)
		if err != nil {
			continue
		}
		if meta.PatientID != patientID {
			continue
		}
		if category != "" && meta.Category != category {
			continue
		}
		matched = append(matched, meta)
	}
	return paginate(matched, limit, offset)
}
