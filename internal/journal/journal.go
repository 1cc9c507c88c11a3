// Package journal stores submissions in PostgreSQL as an alternative to a
// spreadsheet. The table is created by the migrations in migrations/.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/reviewbot/core/logger"
	"github.com/m3rciful/reviewbot/internal/feedback"
)

// Entry is one stored submission.
type Entry struct {
	ID            int64     `db:"id"`
	SubmittedAt   string    `db:"submitted_at"`
	Establishment string    `db:"establishment"`
	Text          string    `db:"text"`
	PhotoFormula  string    `db:"photo_formula"`
	PhotoURL      string    `db:"photo_url"`
	UserID        int64     `db:"user_id"`
	CreatedAt     time.Time `db:"created_at"`
}

// Row returns the entry in the same five-column shape a spreadsheet gets.
func (e Entry) Row() []string {
	return []string{e.SubmittedAt, e.Establishment, e.Text, e.PhotoFormula, e.PhotoURL}
}

func entryFrom(s feedback.Submission) Entry {
	row := s.Row()
	return Entry{
		SubmittedAt:   row[0],
		Establishment: row[1],
		Text:          row[2],
		PhotoFormula:  row[3],
		PhotoURL:      row[4],
		UserID:        s.UserID,
	}
}

const insertSQL = `INSERT INTO submissions
	(submitted_at, establishment, text, photo_formula, photo_url, user_id)
	VALUES (:submitted_at, :establishment, :text, :photo_formula, :photo_url, :user_id)`

// Journal implements feedback.Writer on top of sqlx.
type Journal struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Journal {
	return &Journal{db: db}
}

// Write inserts one submission.
func (j *Journal) Write(ctx context.Context, s feedback.Submission) error {
	start := time.Now()
	if _, err := j.db.NamedExecContext(ctx, insertSQL, entryFrom(s)); err != nil {
		logger.Error(ctx, "db", "submission.insert",
			slog.String("status", "fail"),
			slog.String("backend", "postgres"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("journal: insert: %w", err)
	}
	logger.Debug(ctx, "db", "submission.insert",
		slog.String("status", "ok"),
		slog.String("backend", "postgres"),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Ping reports database reachability.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}
