package blobsvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core/attachment"
)

// LocalStore keeps blobs under a directory of the local filesystem.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ attachment.BlobStore = (*LocalStore)(nil)

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) abs(p string) string {
	return filepath.Join(s.dir, filepath.FromSlash(p))
}

func (s *LocalStore) Upload(ctx context.Context, p string, r io.Reader, contentType string) (attachment.Object, error) {
	dst := s.abs(p)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return attachment.Object{}, errors.Wrap(err, "creating blob dir")
	}
	f, err := os.Create(dst)
	if err != nil {
		return attachment.Object{}, errors.Wrap(err, "creating blob")
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return attachment.Object{}, errors.Wrap(err, "writing blob")
	}
	return attachment.Object{Path: p, Size: n, ContentType: contentType}, nil
}

func (s *LocalStore) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	f, err := os.Open(s.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, attachment.ErrNotFound
		}
		return nil, errors.Wrap(err, "opening blob")
	}
	if fi, err := f.Stat(); err == nil && fi.IsDir() {
		f.Close()
		return nil, attachment.ErrNotFound
	}
	return f, nil
}

func (s *LocalStore) PublicURL(p string) string {
	return s.baseURL + "/" + p
}
