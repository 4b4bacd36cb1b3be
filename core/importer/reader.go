package importer

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/pkg/errors"
)

// DefaultMaxFileSize caps uploads when no size is configured.
const DefaultMaxFileSize int64 = 10 << 20

var (
	// input errors
	ErrFileMissing       = errors.New("Arquivo não encontrado no formulário")
	ErrEmptyFile         = errors.New("Arquivo vazio")
	ErrUnreadableArchive = errors.New("Arquivo XLSX ilegível ou corrompido")
	ErrNoSheet           = errors.New("Nenhuma planilha encontrada no arquivo XLSX")
	ErrEmptySheet        = errors.New("Planilha vazia")
)

// FileTooLargeError is returned for uploads above the size ceiling.
type FileTooLargeError struct {
	Size, Max int64
}

func (e FileTooLargeError) Error() string {
	return fmt.Sprintf("Arquivo muito grande. Tamanho máximo permitido: %dMB", e.Max>>20)
}

// FileInfo is an uploaded file held in memory.
type FileInfo struct {
	Name string
	Data []byte
}

// ReadFile loads a multipart upload, refusing anything larger than maxSize bytes.
func ReadFile(fh *multipart.FileHeader, maxSize int64) (FileInfo, error) {
	if fh == nil {
		return FileInfo{}, ErrFileMissing
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if fh.Size > maxSize {
		return FileInfo{}, &FileTooLargeError{Size: fh.Size, Max: maxSize}
	}
	f, err := fh.Open()
	if err != nil {
		return FileInfo{}, errors.Wrap(err, "opening upload")
	}
	defer f.Close()
	return Read(fh.Filename, f, maxSize)
}

// Read loads at most maxSize bytes from r.
func Read(name string, r io.Reader, maxSize int64) (FileInfo, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return FileInfo{}, errors.Wrap(err, "reading upload")
	}
	if int64(len(data)) > maxSize {
		return FileInfo{}, &FileTooLargeError{Size: int64(len(data)), Max: maxSize}
	}
	return FileInfo{Name: name, Data: data}, nil
}
