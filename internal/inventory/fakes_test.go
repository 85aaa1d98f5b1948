package inventory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"sync"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0}, make([]byte, 32)...)
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

type memSource []byte

func (m memSource) Open() (multipart.File, error) {
	return memFile{bytes.NewReader(m)}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string]string
	fail    bool
}

func (f *fakeStore) Upload(_ context.Context, object, contentType string, body io.Reader) (string, error) {
	if f.fail {
		return "", errors.New("bucket unavailable")
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[object] = contentType
	return "https://cdn.test/bucket/" + object, nil
}

type stubImages struct {
	urls []string
	err  error
	hits int
}

func (s *stubImages) UploadAll(_ context.Context, files []FileSource) ([]string, error) {
	s.hits++
	if s.err != nil {
		return nil, s.err
	}
	return s.urls[:len(files)], nil
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
