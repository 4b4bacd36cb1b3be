package attachment

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	blobs map[string][]byte
	types map[string]string
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Upload(_ context.Context, p string, r io.Reader, contentType string) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, err
	}
	s.blobs[p] = data
	s.types[p] = contentType
	return Object{Path: p, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *memStore) Download(_ context.Context, p string) (io.ReadCloser, error) {
	data, ok := s.blobs[p]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) PublicURL(p string) string { return "/v1/storage/simulators/" + p }

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}

func TestService_Upload(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, 1<<10)
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	content := []byte("<!DOCTYPE html><html><body><canvas></canvas></body></html>")

	up, err := svc.Upload(context.Background(), "u1", fileHeader(t, "sim.html", content))
	require.NoError(t, err)
	assert.Equal(t, Upload{
		Path:     "u1/1700000000123-sim.html",
		URL:      "/v1/storage/simulators/u1/1700000000123-sim.html",
		FileName: "sim.html",
		FileSize: int64(len(content)),
		FileType: "text/html",
	}, up)
	assert.Equal(t, content, store.blobs[up.Path])

	rc, ct, err := svc.Open(context.Background(), "/u1/../u1/1700000000123-sim.html")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, content, got)
	assert.Equal(t, "text/html", ct)
}

func TestService_Upload_rejects(t *testing.T) {
	svc := NewService(newMemStore(), 1<<10)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "u1", nil)
	assert.Equal(t, ErrFileRequired, err)

	_, err = svc.Upload(ctx, "u1", fileHeader(t, "big.zip", make([]byte, 2<<10)))
	var tooLarge *FileTooLargeError
	assert.ErrorAs(t, err, &tooLarge)

	_, err = svc.Upload(ctx, "u1", fileHeader(t, "pic.png", []byte("\x89PNG\r\n\x1a\n0000")))
	assert.Equal(t, ErrTypeNotAllowed, err)
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
		wantErr error
	}{
		{"bundle.zip", []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00"), "application/zip", nil},
		{"data.json", []byte(`{"scene": 1}`), "application/json", nil},
		{"game.js", []byte("console.log('hi')\n"), "application/javascript", nil},
		{"notes.txt", []byte("just text\n"), "", ErrTypeNotAllowed},
		{"pic.png", []byte("\x89PNG\r\n\x1a\n0000"), "", ErrTypeNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectType(bytes.NewReader(tt.content), tt.name)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentTypeForExt(t *testing.T) {
	tests := map[string]string{
		"a/b/video.MP4": "video/mp4",
		"scene.glb":     "model/gltf-binary",
		"photo.jpeg":    "image/jpeg",
		"index.html":    "text/html",
		"game.js":       "application/javascript",
		"archive.tar":   "application/octet-stream",
		"noext":         "application/octet-stream",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentTypeForExt(name), name)
	}
}

func TestCleanPath(t *testing.T) {
	for in, want := range map[string]string{
		"u1/a.zip":         "u1/a.zip",
		"/u1//a.zip":       "u1/a.zip",
		"../../etc/passwd": "etc/passwd",
	} {
		got, ok := CleanPath(in)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := CleanPath("/")
	assert.False(t, ok)
}
