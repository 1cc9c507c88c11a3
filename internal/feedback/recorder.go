package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/reviewbot/core/logger"
)

const component = "service.feedback"

// Sessions is the part of the session tracker the recorder depends on.
type Sessions interface {
	Establishment(ctx context.Context, userID int64) (string, bool, error)
	Finish(ctx context.Context, userID int64) error
}

// Options tunes a Recorder.
type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Location defaults to time.Local.
	Location *time.Location
	// PhotoPolicy is only logged.
	PhotoPolicy string
}

// Receipt describes what was written.
type Receipt struct {
	Establishment string
	Row           []string
	HasPhoto      bool
	// PhotoDropped is set when a photo was sent but could not be resolved.
	PhotoDropped bool
	PhotoErr     error
}

// Recorder validates a submission against the session, resolves photos and
// writes one row.
type Recorder struct {
	sessions Sessions
	writer   Writer
	photos   PhotoResolver
	now      func() time.Time
	loc      *time.Location
	policy   string
}

// NewRecorder wires a recorder. photos may be nil, in which case every
// photo is dropped.
func NewRecorder(sessions Sessions, writer Writer, photos PhotoResolver, opts Options) *Recorder {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Recorder{
		sessions: sessions,
		writer:   writer,
		photos:   photos,
		now:      now,
		loc:      loc,
		policy:   opts.PhotoPolicy,
	}
}

// RecordText writes a text-only submission. It never touches photo storage.
func (r *Recorder) RecordText(ctx context.Context, userID int64, text string) (Receipt, error) {
	est, err := r.establishment(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	sub := Submission{
		Time:          r.now().In(r.loc),
		UserID:        userID,
		Establishment: est,
		Text:          text,
	}
	return r.write(logger.WithEstablishment(ctx, est), sub, Receipt{Establishment: est})
}

// RecordPhoto writes a photo submission with caption as its text. A photo
// that cannot be resolved is dropped and the row is written without it.
func (r *Recorder) RecordPhoto(ctx context.Context, userID int64, photo Photo, caption string) (Receipt, error) {
	est, err := r.establishment(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	ctx = logger.WithEstablishment(ctx, est)

	res := PhotoFailed(fmt.Errorf("%w: no photo resolver configured", ErrPhotoFetchFailed))
	if r.photos != nil {
		res = r.photos.Resolve(ctx, userID, photo)
	}
	rec := Receipt{Establishment: est, HasPhoto: true}
	sub := Submission{
		Time:          r.now().In(r.loc),
		UserID:        userID,
		Establishment: est,
		Text:          caption,
	}
	if res.OK() {
		sub.Photo = res.Ref
	} else {
		rec.PhotoDropped = true
		rec.PhotoErr = res.Err
		logger.Warn(ctx, component, "photo.dropped",
			slog.String("status", "partial"),
			slog.Int64("user_id", userID),
			slog.String("photo_policy", r.policy),
			slog.String("err", errString(res.Err)),
		)
	}
	return r.write(ctx, sub, rec)
}

func (r *Recorder) establishment(ctx context.Context, userID int64) (string, error) {
	est, ok, err := r.sessions.Establishment(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: session lookup: %w", ErrUpstreamUnavailable, err)
	}
	if !ok {
		logger.Info(ctx, component, "submission.rejected",
			slog.String("status", "skip"),
			slog.String("outcome", "reprompt"),
			slog.Int64("user_id", userID),
		)
		return "", ErrNoEstablishmentSelected
	}
	return est, nil
}

func (r *Recorder) write(ctx context.Context, sub Submission, rec Receipt) (Receipt, error) {
	start := time.Now()
	rec.Row = sub.Row()
	writeErr := r.writer.Write(ctx, sub)

	// The session ends with the attempt; a failed write is not retried.
	if err := r.sessions.Finish(ctx, sub.UserID); err != nil {
		logger.Warn(ctx, component, "session.finish_failed",
			slog.Int64("user_id", sub.UserID),
			slog.String("err", err.Error()),
		)
	}

	attrs := []slog.Attr{
		slog.Int64("user_id", sub.UserID),
		slog.Bool("has_photo", rec.HasPhoto),
		slog.Bool("photo_dropped", rec.PhotoDropped),
		slog.Int("text_len", len([]rune(sub.Text))),
		slog.Duration("duration", time.Since(start)),
	}
	if writeErr != nil {
		logger.Error(ctx, component, "submission.write_failed",
			append(attrs,
				slog.String("status", "fail"),
				slog.String("err", logger.RedactSecrets(writeErr.Error())),
			)...,
		)
		return rec, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, writeErr)
	}
	status := "ok"
	if rec.PhotoDropped {
		status = "partial"
	}
	logger.Info(ctx, component, "submission.recorded",
		append(attrs,
			slog.String("status", status),
			slog.String("outcome", "recorded"),
		)...,
	)
	return rec, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return logger.RedactSecrets(err.Error())
}
