package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var metaBucket = []byte("objects")

// FSObjectStore keeps object payloads on the local filesystem with a bbolt
// sidecar database for metadata (content type, size, mtime).
type FSObjectStore struct {
	dir  string
	meta *bolt.DB
}

func NewFSObjectStore(dir string) (*FSObjectStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "storage: create dir")
	}
	meta, err := bolt.Open(filepath.Join(dir, "meta.db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "storage: open metadata db")
	}
	err = meta.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		_ = meta.Close()
		return nil, errors.Wrap(err, "storage: init metadata bucket")
	}
	return &FSObjectStore{dir: dir, meta: meta}, nil
}

var _ ObjectStore = (*FSObjectStore)(nil)

// path maps an object name to a file path, refusing names that would
// escape the storage directory.
func (s *FSObjectStore) path(name string) (string, error) {
	clean := filepath.Clean(name)
	if clean == "meta.db" || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.Errorf("storage: invalid object name %q", name)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *FSObjectStore) Put(_ context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, errors.Wrap(err, "storage: create object dir")
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return nil, errors.Wrap(err, "storage: write object")
	}

	info := &ObjectInfo{
		Name:        name,
		Size:        uint64(len(data)),
		ContentType: contentType,
		ModTime:     time.Now(),
	}
	err = s.meta.Update(func(tx *bolt.Tx) error {
		raw, err := json.Marshal(info)
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put([]byte(name), raw)
	})
	if err != nil {
		return nil, errors.Wrap(err, "storage: write metadata")
	}
	return info, nil
}

func (s *FSObjectStore) GetInfo(_ context.Context, name string) (*ObjectInfo, error) {
	var info *ObjectInfo
	err := s.meta.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get([]byte(name))
		if raw == nil {
			return ErrNotFound
		}
		info = new(ObjectInfo)
		return json.Unmarshal(raw, info)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *FSObjectStore) Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	info, err := s.GetInfo(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "storage: read object")
	}
	return data, info, nil
}

func (s *FSObjectStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "storage: remove object")
	}
	return s.meta.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Delete([]byte(name))
	})
}

func (s *FSObjectStore) List(_ context.Context) ([]*ObjectInfo, error) {
	var infos []*ObjectInfo
	err := s.meta.View(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).ForEach(func(_, raw []byte) error {
			info := new(ObjectInfo)
			if err := json.Unmarshal(raw, info); err != nil {
				return err
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Close releases the metadata database handle.
func (s *FSObjectStore) Close() error {
	return s.meta.Close()
}
