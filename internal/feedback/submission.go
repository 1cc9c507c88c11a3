// Package feedback turns a selected establishment plus text and/or a photo
// into exactly one persisted row.
package feedback

import (
	"context"
	"errors"
	"strings"
	"time"
)

// TimestampLayout formats the first row column.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	// ErrNoEstablishmentSelected means feedback arrived before a menu choice.
	ErrNoEstablishmentSelected = errors.New("no establishment selected")
	// ErrUpstreamUnavailable wraps failures of the tabular or session store.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPhotoFetchFailed wraps failures to fetch, download or upload a photo.
	ErrPhotoFetchFailed = errors.New("photo fetch failed")
)

// Photo identifies an inbound Telegram photo.
type Photo struct {
	FileID   string
	UniqueID string
	Size     int64
}

// PhotoRef is the persisted representation of a photo.
type PhotoRef struct {
	URL string
}

// Formula renders the spreadsheet preview cell for the photo.
func (r PhotoRef) Formula() string {
	if r.URL == "" {
		return ""
	}
	return `=IMAGE("` + strings.ReplaceAll(r.URL, `"`, `""`) + `")`
}

// PhotoResult is either a usable reference or the reason none is available.
type PhotoResult struct {
	Ref PhotoRef
	Err error
}

// PhotoOK wraps a resolved reference.
func PhotoOK(ref PhotoRef) PhotoResult { return PhotoResult{Ref: ref} }

// PhotoFailed records why a photo could not be resolved.
func PhotoFailed(err error) PhotoResult {
	if err == nil {
		err = ErrPhotoFetchFailed
	}
	return PhotoResult{Err: err}
}

// OK reports whether the photo was resolved.
func (r PhotoResult) OK() bool { return r.Err == nil && r.Ref.URL != "" }

// PhotoResolver produces a PhotoRef for an inbound photo.
type PhotoResolver interface {
	Resolve(ctx context.Context, userID int64, photo Photo) PhotoResult
}

// PhotoResolverFunc adapts a function to PhotoResolver.
type PhotoResolverFunc func(ctx context.Context, userID int64, photo Photo) PhotoResult

// Resolve calls f.
func (f PhotoResolverFunc) Resolve(ctx context.Context, userID int64, photo Photo) PhotoResult {
	return f(ctx, userID, photo)
}

// Submission is one completed piece of feedback. It is written once and dropped.
type Submission struct {
	Time          time.Time
	UserID        int64
	Establishment string
	Text          string
	Photo         PhotoRef
}

// Row returns the fixed five-column record:
// timestamp, establishment, text, preview formula, photo URL.
func (s Submission) Row() []string {
	return []string{
		s.Time.Format(TimestampLayout),
		s.Establishment,
		s.Text,
		s.Photo.Formula(),
		s.Photo.URL,
	}
}

// Writer persists submissions.
type Writer interface {
	Write(ctx context.Context, s Submission) error
}

// RowWriter appends one row of cells to a tabular store.
type RowWriter interface {
	WriteRow(ctx context.Context, row []string) error
}

// Rows adapts a RowWriter into a Writer using Submission.Row.
func Rows(w RowWriter) Writer {
	return rowWriter{w: w}
}

type rowWriter struct{ w RowWriter }

func (r rowWriter) Write(ctx context.Context, s Submission) error {
	return r.w.WriteRow(ctx, s.Row())
}
