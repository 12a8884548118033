package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"
)

func headerContentType(headers nats.Header) string {
	if headers != nil {
		if ct := headers.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

// JetStreamObjectStore implements ObjectStore on a NATS JetStream object
// store bucket, for deployments where uploads must be shared between
// replicas.
type JetStreamObjectStore struct {
	conn   *nats.Conn
	store  jetstream.ObjectStore
	bucket string
}

func NewJetStreamObjectStore(ctx context.Context, natsURL, bucket string) (*JetStreamObjectStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, errors.Wrap(err, "storage: connect to nats")
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "storage: create jetstream context")
	}

	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "urbanthreads uploads",
		})
		if err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "storage: create object store bucket")
		}
	}

	return &JetStreamObjectStore{conn: conn, store: store, bucket: bucket}, nil
}

var _ ObjectStore = (*JetStreamObjectStore)(nil)

func (s *JetStreamObjectStore) Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	meta := jetstream.ObjectMeta{
		Name:    name,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	info, err := s.store.Put(ctx, meta, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "storage: put object")
	}
	return &ObjectInfo{
		Name:        info.Name,
		Size:        info.Size,
		ContentType: contentType,
		ModTime:     info.ModTime,
	}, nil
}

func (s *JetStreamObjectStore) Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	result, err := s.store.Get(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "storage: get object")
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, nil, errors.Wrap(err, "storage: read object")
	}
	info, err := result.Info()
	if err != nil {
		return nil, nil, errors.Wrap(err, "storage: object info")
	}
	return data, &ObjectInfo{
		Name:        info.Name,
		Size:        info.Size,
		ContentType: headerContentType(info.Headers),
		ModTime:     info.ModTime,
	}, nil
}

func (s *JetStreamObjectStore) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, jetstream.ErrObjectNotFound) {
		return errors.Wrap(err, "storage: delete object")
	}
	return nil
}

func (s *JetStreamObjectStore) GetInfo(ctx context.Context, name string) (*ObjectInfo, error) {
	info, err := s.store.GetInfo(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage: object info")
	}
	return &ObjectInfo{
		Name:        info.Name,
		Size:        info.Size,
		ContentType: headerContentType(info.Headers),
		ModTime:     info.ModTime,
	}, nil
}

func (s *JetStreamObjectStore) List(ctx context.Context) ([]*ObjectInfo, error) {
	infos, err := s.store.List(ctx)
	if errors.Is(err, jetstream.ErrNoObjectsFound) {
		return []*ObjectInfo{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage: list objects")
	}
	objects := make([]*ObjectInfo, 0, len(infos))
	for _, info := range infos {
		objects = append(objects, &ObjectInfo{
			Name:        info.Name,
			Size:        info.Size,
			ContentType: headerContentType(info.Headers),
			ModTime:     info.ModTime,
		})
	}
	return objects, nil
}

func (s *JetStreamObjectStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
