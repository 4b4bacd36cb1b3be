package attachment

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
)

// DefaultMaxFileSize caps uploads when no size is configured.
const DefaultMaxFileSize int64 = 100 << 20

var (
	ErrFileRequired   = errors.New("Arquivo é obrigatório")
	ErrTypeNotAllowed = errors.New("Tipo de arquivo não permitido")
	ErrNotFound       = core.NewNotFoundError("Arquivo não encontrado")

	// AllowedTypes are the simulator bundle formats accepted for upload.
	AllowedTypes = []string{
		"video/mp4",
		"video/webm",
		"video/ogg",
		"application/zip",
		"application/x-zip-compressed",
		"text/html",
		"application/javascript",
		"application/json",
		"model/gltf-binary",
		"model/gltf+json",
	}
)

type FileTooLargeError struct {
	Size, Max int64
}

func (e FileTooLargeError) Error() string {
	return fmt.Sprintf("Arquivo muito grande. Tamanho máximo: %dMB", e.Max>>20)
}

type (
	// Object is a stored blob.
	Object struct {
		Path        string
		Size        int64
		ContentType string
	}

	// BlobStore is any object storage holding simulator files.
	BlobStore interface {
		Upload(ctx context.Context, path string, r io.Reader, contentType string) (Object, error)
		// Download returns ErrNotFound for missing paths.
		Download(ctx context.Context, path string) (io.ReadCloser, error)
		PublicURL(path string) string
	}

	Upload struct {
		Path     string `json:"path"`
		URL      string `json:"url"`
		FileName string `json:"fileName"`
		FileSize int64  `json:"fileSize"`
		FileType string `json:"fileType"`
	}
)

type Service struct {
	store   BlobStore
	maxSize int64
	now     func() time.Time
}

func NewService(store BlobStore, maxSize int64) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Service{store: store, maxSize: maxSize, now: time.Now}
}

// Upload stores fh under "<userID>/<unix millis>-<file name>" once its detected type is allowed.
func (svc *Service) Upload(ctx context.Context, userID string, fh *multipart.FileHeader) (Upload, error) {
	if fh == nil {
		return Upload{}, ErrFileRequired
	}
	if fh.Size > svc.maxSize {
		return Upload{}, &FileTooLargeError{Size: fh.Size, Max: svc.maxSize}
	}

	f, err := fh.Open()
	if err != nil {
		return Upload{}, errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	contentType, err := DetectType(f, fh.Filename)
	if err != nil {
		return Upload{}, err
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return Upload{}, errors.Wrap(err, "rewinding upload")
	}

	name := cleanFileName(fh.Filename)
	p := fmt.Sprintf("%s/%d-%s", userID, svc.now().UnixMilli(), name)
	obj, err := svc.store.Upload(ctx, p, f, contentType)
	if err != nil {
		return Upload{}, errors.Wrap(err, "storing upload")
	}
	return Upload{
		Path:     obj.Path,
		URL:      svc.store.PublicURL(obj.Path),
		FileName: fh.Filename,
		FileSize: fh.Size,
		FileType: contentType,
	}, nil
}

// DetectType sniffs r and returns its allowed MIME type. Content that only sniffs as plain text or
// binary falls back to the type of its extension (javascript, gltf).
func DetectType(r io.Reader, fileName string) (string, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", errors.Wrap(err, "detecting file type")
	}
	for _, allowed := range AllowedTypes {
		if mtype.Is(allowed) {
			return allowed, nil
		}
	}
	if mtype.Is("text/plain") || mtype.Is("application/octet-stream") {
		byExt := ContentTypeForExt(fileName)
		for _, allowed := range AllowedTypes {
			if byExt == allowed {
				return allowed, nil
			}
		}
	}
	return "", ErrTypeNotAllowed
}

// Open streams a stored file with the content type of its extension.
func (svc *Service) Open(ctx context.Context, p string) (io.ReadCloser, string, error) {
	p, ok := CleanPath(p)
	if !ok {
		return nil, "", ErrNotFound
	}
	rc, err := svc.store.Download(ctx, p)
	if err != nil {
		return nil, "", err
	}
	return rc, ContentTypeForExt(p), nil
}

// CleanPath normalizes a storage path relative to the bucket root; ".." cannot climb above it.
func CleanPath(p string) (string, bool) {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p, p != ""
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == '/' || r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}

// ContentTypeForExt maps the extension of name to the content type served for it.
func ContentTypeForExt(name string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")) {
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "ogg":
		return "video/ogg"
	case "html":
		return "text/html"
	case "js":
		return "application/javascript"
	case "json":
		return "application/json"
	case "zip":
		return "application/zip"
	case "glb":
		return "model/gltf-binary"
	case "gltf":
		return "model/gltf+json"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
