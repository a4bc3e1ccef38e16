package storage

import (
	"bytes"
	"io"
	"mime/multipart"
)

// MultipartSource - фото, пришедшее в multipart-запросе. URI - имя файла у клиента.
type MultipartSource struct {
	Header *multipart.FileHeader
}

func (m MultipartSource) URI() string {
	return m.Header.Filename
}

func (m MultipartSource) Open() (io.ReadCloser, error) {
	return m.Header.Open()
}

// BytesSource - фото, уже находящееся в памяти.
type BytesSource struct {
	Locator string
	Data    []byte
}

func (b BytesSource) URI() string {
	return b.Locator
}

func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}
