// Package drive stores photo copies in a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/m3rciful/reviewbot/core/logger"
	"github.com/m3rciful/reviewbot/internal/photos"
)

// filesAPI is the slice of the Drive API used by Store.
type filesAPI interface {
	Create(ctx context.Context, name, folderID, mimeType string, body io.Reader) (id, link string, err error)
	ShareWithAnyone(ctx context.Context, fileID string) error
	Delete(ctx context.Context, fileID string) error
}

// Store uploads into one folder and shares files as anyone-with-link readers.
type Store struct {
	api      filesAPI
	folderID string
}

// New creates a Drive-backed store for folderID.
func New(ctx context.Context, folderID string, opts ...option.ClientOption) (*Store, error) {
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: new service: %w", err)
	}
	return &Store{api: &serviceAPI{svc: svc}, folderID: folderID}, nil
}

// ViewURL is a direct image link usable inside =IMAGE().
func ViewURL(fileID string) string {
	return "https://drive.google.com/uc?export=view&id=" + url.QueryEscape(fileID)
}

// Upload implements photos.ObjectStore.
func (s *Store) Upload(ctx context.Context, localPath, name, mimeType string) (photos.Object, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return photos.Object{}, fmt.Errorf("drive: open %s: %w", localPath, err)
	}
	defer f.Close()

	id, link, err := s.api.Create(ctx, name, s.folderID, mimeType, f)
	if err != nil {
		return photos.Object{}, fmt.Errorf("drive: create %s: %w", name, err)
	}
	logger.Debug(ctx, "store.objects", "object.upload",
		slog.String("status", "ok"),
		slog.String("backend", "drive"),
		slog.String("object_key", id),
	)
	return photos.Object{ID: id, URL: link}, nil
}

// Publish implements photos.ObjectStore by granting anyone/reader.
func (s *Store) Publish(ctx context.Context, obj photos.Object) (photos.Object, error) {
	if err := s.api.ShareWithAnyone(ctx, obj.ID); err != nil {
		return photos.Object{}, fmt.Errorf("drive: share %s: %w", obj.ID, err)
	}
	obj.URL = ViewURL(obj.ID)
	return obj, nil
}

// Delete implements photos.ObjectStore.
func (s *Store) Delete(ctx context.Context, obj photos.Object) error {
	if err := s.api.Delete(ctx, obj.ID); err != nil {
		return fmt.Errorf("drive: delete %s: %w", obj.ID, err)
	}
	return nil
}

type serviceAPI struct {
	svc *gdrive.Service
}

func (a *serviceAPI) Create(ctx context.Context, name, folderID, mimeType string, body io.Reader) (string, string, error) {
	meta := &gdrive.File{Name: name, MimeType: mimeType}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	created, err := a.svc.Files.Create(meta).
		Media(body, googleapi.ContentType(mimeType)).
		Fields("id, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", "", err
	}
	return created.Id, created.WebViewLink, nil
}

func (a *serviceAPI) ShareWithAnyone(ctx context.Context, fileID string) error {
	_, err := a.svc.Permissions.Create(fileID, &gdrive.Permission{Type: "anyone", Role: "reader"}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

func (a *serviceAPI) Delete(ctx context.Context, fileID string) error {
	return a.svc.Files.Delete(fileID).SupportsAllDrives(true).Context(ctx).Do()
}
