package blobsvc

import (
	"context"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/simcatalog/core/attachment"
)

const gcsUploadTimeout = 5 * time.Minute

// GCSStore keeps blobs in a Google Cloud Storage bucket.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

var _ attachment.BlobStore = (*GCSStore)(nil)

// NewGCSStore opens a client with the given service-account file, or the default credentials when empty.
// An empty baseURL serves objects from storage.googleapis.com.
func NewGCSStore(ctx context.Context, bucket, credentialsFile, baseURL string) (*GCSStore, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *GCSStore) Upload(ctx context.Context, p string, r io.Reader, contentType string) (attachment.Object, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsUploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(p).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return attachment.Object{}, errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return attachment.Object{}, errors.Wrap(err, "closing object writer")
	}
	return attachment.Object{Path: p, Size: n, ContentType: contentType}, nil
}

func (s *GCSStore) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(p).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, attachment.ErrNotFound
		}
		return nil, errors.Wrap(err, "reading object")
	}
	return rc, nil
}

func (s *GCSStore) PublicURL(p string) string {
	return s.baseURL + "/" + p
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
