package photos

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/reviewbot/core/logger"
	"github.com/m3rciful/reviewbot/internal/feedback"
)

// JPEGMime is the content type Telegram uses for compressed photos.
const JPEGMime = "image/jpeg"

const discardTimeout = 10 * time.Second

// Object is a stored file and its shareable URL.
type Object struct {
	ID  string
	URL string
}

// ObjectStore uploads files and makes them readable by link.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, name, mimeType string) (Object, error)
	Publish(ctx context.Context, obj Object) (Object, error)
	Delete(ctx context.Context, obj Object) error
}

// DurableCopier downloads a photo to a temporary file, uploads it to an
// object store and publishes it. The temporary file never outlives Resolve.
type DurableCopier struct {
	files   FileSource
	store   ObjectStore
	tempDir string
	now     func() time.Time
	suffix  func() string
}

// CopierOptions tunes a DurableCopier.
type CopierOptions struct {
	// TempDir defaults to os.TempDir.
	TempDir string
	Now     func() time.Time
	// Suffix returns the random part of object names; default 8 hex chars of a UUID.
	Suffix func() string
}

// NewDurableCopier wires the copier.
func NewDurableCopier(files FileSource, store ObjectStore, opts CopierOptions) *DurableCopier {
	c := &DurableCopier{
		files:   files,
		store:   store,
		tempDir: opts.TempDir,
		now:     opts.Now,
		suffix:  opts.Suffix,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.suffix == nil {
		c.suffix = func() string { return uuid.NewString()[:8] }
	}
	return c
}

// ObjectName builds <user>_<yyyymmdd_hhmmss>_<suffix>.jpg.
func ObjectName(userID int64, at time.Time, suffix string) string {
	return fmt.Sprintf("%d_%s_%s.jpg", userID, at.Format("20060102_150405"), suffix)
}

// Resolve implements feedback.PhotoResolver.
func (d *DurableCopier) Resolve(ctx context.Context, userID int64, photo feedback.Photo) feedback.PhotoResult {
	start := time.Now()
	obj, err := d.copy(ctx, userID, photo)
	if err != nil {
		logger.Warn(ctx, "store.objects", "photo.copy",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("photo_policy", "durable"),
			slog.String("err", logger.RedactSecrets(err.Error())),
			slog.Duration("duration", time.Since(start)),
		)
		return feedback.PhotoFailed(err)
	}
	logger.Info(ctx, "store.objects", "photo.copy",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("photo_policy", "durable"),
		slog.String("object_key", obj.ID),
		slog.String("object_url", obj.URL),
		slog.Duration("duration", time.Since(start)),
	)
	return feedback.PhotoOK(feedback.PhotoRef{URL: obj.URL})
}

func (d *DurableCopier) copy(ctx context.Context, userID int64, photo feedback.Photo) (Object, error) {
	tmp, err := os.CreateTemp(d.tempDir, "photo-*.jpg")
	if err != nil {
		return Object{}, fmt.Errorf("%w: temp file: %w", feedback.ErrPhotoFetchFailed, err)
	}
	path := tmp.Name()
	defer os.Remove(path)
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("%w: temp file: %w", feedback.ErrPhotoFetchFailed, err)
	}

	if err := d.files.Download(ctx, photo.FileID, path); err != nil {
		return Object{}, fmt.Errorf("%w: %w", feedback.ErrPhotoFetchFailed, err)
	}

	name := ObjectName(userID, d.now(), d.suffix())
	obj, err := d.store.Upload(ctx, path, name, JPEGMime)
	if err != nil {
		return Object{}, fmt.Errorf("%w: upload %s: %w", feedback.ErrUpstreamUnavailable, name, err)
	}
	published, err := d.store.Publish(ctx, obj)
	if err != nil {
		d.discard(ctx, obj)
		return Object{}, fmt.Errorf("%w: publish %s: %w", feedback.ErrUpstreamUnavailable, name, err)
	}
	if published.URL == "" {
		d.discard(ctx, obj)
		return Object{}, fmt.Errorf("%w: %s has no public url", feedback.ErrUpstreamUnavailable, name)
	}
	return published, nil
}

// discard removes an uploaded object that could not be published. A failed
// delete is logged with the object key so it can be cleaned up by hand.
func (d *DurableCopier) discard(ctx context.Context, obj Object) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := d.store.Delete(ctx, obj); err != nil {
		logger.Warn(ctx, "store.objects", "object.orphaned",
			slog.String("status", "fail"),
			slog.String("object_key", obj.ID),
			slog.String("err", logger.RedactSecrets(err.Error())),
		)
		return
	}
	logger.Debug(ctx, "store.objects", "object.discarded",
		slog.String("status", "ok"),
		slog.String("object_key", obj.ID),
	)
}
