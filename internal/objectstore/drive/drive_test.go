package drive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/m3rciful/reviewbot/internal/photos"
)

type fakeFiles struct {
	body     string
	folder   string
	mime     string
	shared   []string
	deleted  []string
	shareErr error
}

func (f *fakeFiles) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFiles) Create(_ context.Context, name, folderID, mimeType string, body io.Reader) (string, string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", "", err
	}
	f.body, f.folder, f.mime = string(data), folderID, mimeType
	return "file-" + name, "https://drive.google.com/file/d/file-" + name + "/view", nil
}

func (f *fakeFiles) ShareWithAnyone(_ context.Context, id string) error {
	if f.shareErr != nil {
		return f.shareErr
	}
	f.shared = append(f.shared, id)
	return nil
}

func TestUploadAndPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.jpg")
	if err := os.WriteFile(path, []byte("img"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	api := &fakeFiles{}
	s := &Store{api: api, folderID: "folder-1"}

	obj, err := s.Upload(context.Background(), path, "1_x.jpg", photos.JPEGMime)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if api.body != "img" || api.folder != "folder-1" || api.mime != "image/jpeg" {
		t.Fatalf("api saw body=%q folder=%q mime=%q", api.body, api.folder, api.mime)
	}
	pub, err := s.Publish(context.Background(), obj)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(api.shared) != 1 || api.shared[0] != "file-1_x.jpg" {
		t.Fatalf("shared = %v", api.shared)
	}
	if pub.URL != "https://drive.google.com/uc?export=view&id=file-1_x.jpg" {
		t.Fatalf("url = %q", pub.URL)
	}
}

func TestUploadMissingFile(t *testing.T) {
	s := &Store{api: &fakeFiles{}}
	if _, err := s.Upload(context.Background(), filepath.Join(t.TempDir(), "nope"), "n", "image/jpeg"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublishFailure(t *testing.T) {
	boom := errors.New("403")
	s := &Store{api: &fakeFiles{shareErr: boom}}
	if _, err := s.Publish(context.Background(), photos.Object{ID: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	api := &fakeFiles{}
	s := &Store{api: api}
	if err := s.Delete(context.Background(), photos.Object{ID: "file-1"}); err != nil {
		t.Fatal(err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "file-1" {
		t.Fatalf("deleted = %v", api.deleted)
	}
}
