package media

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
)

type fakeObjectStore struct {
	objects map[string][]byte
	types   map[string]string
	failPut bool
	deleted []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, content []byte, contentType string) (string, error) {
	if f.failPut && len(f.objects) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "storage unavailable")
	}
	f.objects[key] = content
	f.types[key] = contentType
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func newTestService(t *testing.T, store ObjectStore) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "media-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(ServiceParams{Store: store, Logger: logg})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

// buildFileHeaders assembles real multipart.FileHeader values by round-tripping
// a multipart body, the same shape http.Request.ParseMultipartForm produces.
func buildFileHeaders(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["images"]
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error with code %s, got %v", code, err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, appErr.Code())
	}
}

func TestUploadImages(t *testing.T) {
	store := newFakeObjectStore()
	svc := newTestService(t, store)

	headers := buildFileHeaders(t, map[string][]byte{
		"front.png": pngBytes,
		"back.jpg":  jpegBytes,
	})

	urls, err := svc.UploadImages(context.Background(), "products", headers)
	if err != nil {
		t.Fatalf("UploadImages: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d", len(urls))
	}
	for _, u := range urls {
		if !strings.HasPrefix(u, "https://cdn.example.com/products/") {
			t.Fatalf("unexpected url %s", u)
		}
	}
	if len(store.objects) != 2 {
		t.Fatalf("expected 2 stored objects, got %d", len(store.objects))
	}
	for key, ct := range store.types {
		if ct != "image/png" && ct != "image/jpeg" {
			t.Fatalf("unexpected content type %s for %s", ct, key)
		}
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	store := newFakeObjectStore()
	svc := newTestService(t, store)

	headers := buildFileHeaders(t, map[string][]byte{
		"notes.txt": []byte("just some text pretending to be an image"),
	})

	_, err := svc.UploadImages(context.Background(), "products", headers)
	expectCode(t, err, pkgerrors.CodeValidation)
	if len(store.objects) != 0 {
		t.Fatal("nothing should be stored for a rejected batch")
	}
}

func TestUploadRejectsTooManyFiles(t *testing.T) {
	store := newFakeObjectStore()
	svc := newTestService(t, store)

	files := map[string][]byte{}
	for i := 0; i < MaxFiles+1; i++ {
		files[string(rune('a'+i))+".png"] = pngBytes
	}
	headers := buildFileHeaders(t, files)

	_, err := svc.UploadImages(context.Background(), "products", headers)
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestUploadRejectsEmptyBatch(t *testing.T) {
	svc := newTestService(t, newFakeObjectStore())
	_, err := svc.UploadImages(context.Background(), "products", nil)
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestUploadCleansUpOnPartialFailure(t *testing.T) {
	store := newFakeObjectStore()
	store.failPut = true
	svc := newTestService(t, store)

	headers := buildFileHeaders(t, map[string][]byte{
		"a.png": pngBytes,
		"b.jpg": jpegBytes,
	})

	_, err := svc.UploadImages(context.Background(), "products", headers)
	expectCode(t, err, pkgerrors.CodeDependency)
	if len(store.objects) != 0 {
		t.Fatalf("expected partial upload to be cleaned up, %d objects remain", len(store.objects))
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected 1 cleanup delete, got %d", len(store.deleted))
	}
}

func TestDeleteByURL(t *testing.T) {
	store := newFakeObjectStore()
	store.objects["products/abc.png"] = pngBytes
	svc := newTestService(t, store)

	if err := svc.DeleteByURL(context.Background(), "https://cdn.example.com/products/abc.png"); err != nil {
		t.Fatalf("DeleteByURL: %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatal("expected object to be deleted")
	}

	err := svc.DeleteByURL(context.Background(), "https://cdn.example.com/")
	expectCode(t, err, pkgerrors.CodeValidation)
}
