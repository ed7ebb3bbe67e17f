// Package blob stores uploaded images in a badger key-value store and
// serves them back under public URLs.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/metrics"
)

// Buckets used by the service.
const (
	BucketMoviePosters = "movie_posters"
	BucketActorImages  = "actor_images"
)

const (
	dataPrefix = "blob:"
	metaPrefix = "blob_meta:"
)

var (
	// ErrNotFound is returned when no object exists under the key.
	ErrNotFound = errors.New("blob: not found")
	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = errors.New("blob: object too large")
	// ErrInvalidKey is returned for empty buckets or paths that escape their bucket.
	ErrInvalidKey = errors.New("blob: invalid bucket or path")
)

// Object is a stored blob with its metadata.
type Object struct {
	Bucket      string
	Path        string
	ContentType string
	Size        int64
	UpdatedAt   time.Time
	Data        []byte
}

type objectMeta struct {
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Options configures a Store.
type Options struct {
	// Dir is the badger directory. Empty opens an in-memory store.
	Dir string
	// PublicBaseURL prefixes every URL returned by PublicURL.
	PublicBaseURL string
	// MaxBytes caps a single upload. Zero disables the cap.
	MaxBytes int64
	Logger   zerolog.Logger
}

// Store is a badger-backed object store.
type Store struct {
	db       *badger.DB
	baseURL  string
	maxBytes int64
	logger   zerolog.Logger
	ownsDB   bool
}

// Open creates the badger database and wraps it in a Store.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.Dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	s := New(db, opts)
	s.ownsDB = true
	return s, nil
}

// New wraps an already opened badger database.
func New(db *badger.DB, opts Options) *Store {
	return &Store{
		db:       db,
		baseURL:  strings.TrimRight(opts.PublicBaseURL, "/"),
		maxBytes: opts.MaxBytes,
		logger:   opts.Logger,
	}
}

// Close releases the database if the store opened it.
func (s *Store) Close() error {
	if s == nil || s.db == nil || !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Upload reads r fully and stores it under bucket/name, replacing any
// previous object. It returns the public URL of the stored object.
func (s *Store) Upload(ctx context.Context, bucket, name string, r io.Reader, contentType string) (string, error) {
	key, err := objectKey(bucket, name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reader := r
	if s.maxBytes > 0 {
		reader = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	meta, err := json.Marshal(objectMeta{
		ContentType: contentType,
		Size:        int64(len(data)),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal blob meta: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataPrefix+key), data); err != nil {
			return fmt.Errorf("set blob: %w", err)
		}
		if err := txn.Set([]byte(metaPrefix+key), meta); err != nil {
			return fmt.Errorf("set blob meta: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", bucket).Str("path", name).Msg("blob: upload failed")
		return "", err
	}

	metrics.BlobUploadBytes.WithLabelValues(bucket).Observe(float64(len(data)))
	s.logger.Debug().Str("bucket", bucket).Str("path", name).Int("bytes", len(data)).Msg("blob: stored")
	return s.PublicURL(bucket, name), nil
}

// Open returns the object stored under bucket/name.
func (s *Store) Open(ctx context.Context, bucket, name string) (Object, error) {
	key, err := objectKey(bucket, name)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	obj := Object{Bucket: bucket, Path: name}
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get blob: %w", err)
		}
		if obj.Data, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("read blob: %w", err)
		}

		metaItem, err := txn.Get([]byte(metaPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get blob meta: %w", err)
		}
		return metaItem.Value(func(val []byte) error {
			var meta objectMeta
			if err := json.Unmarshal(val, &meta); err != nil {
				return fmt.Errorf("decode blob meta: %w", err)
			}
			obj.ContentType = meta.ContentType
			obj.UpdatedAt = meta.UpdatedAt
			return nil
		})
	})
	if err != nil {
		return Object{}, err
	}

	obj.Size = int64(len(obj.Data))
	if obj.ContentType == "" {
		obj.ContentType = http.DetectContentType(obj.Data)
	}
	return obj, nil
}

// Reader is a convenience wrapper returning the object data as a reader.
func (o Object) Reader() io.ReadSeeker {
	return bytes.NewReader(o.Data)
}

// PublicURL returns the URL the HTTP layer serves bucket/name under.
func (s *Store) PublicURL(bucket, name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/storage/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// RandomName returns a collision-resistant object name that keeps the
// extension of the uploaded file name.
func RandomName(original string) string {
	ext := strings.ToLower(path.Ext(original))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\?#% ") {
		ext = ""
	}
	return uuid.NewString() + ext
}

func objectKey(bucket, name string) (string, error) {
	if bucket == "" || strings.Contains(bucket, "/") || name == "" {
		return "", ErrInvalidKey
	}
	clean := path.Clean("/" + name)
	if clean == "/" || clean[1:] != name {
		return "", ErrInvalidKey
	}
	return bucket + "/" + name, nil
}
