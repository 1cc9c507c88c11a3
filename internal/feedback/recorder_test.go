package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/reviewbot/core/telegram/state"
	"github.com/m3rciful/reviewbot/internal/session"
)

var menu = []string{"Good Company", "Blue Door"}

type memoryRows struct {
	rows [][]string
	err  error
}

func (m *memoryRows) WriteRow(_ context.Context, row []string) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, row)
	return nil
}

type countingResolver struct {
	calls  int
	result PhotoResult
}

func (c *countingResolver) Resolve(context.Context, int64, Photo) PhotoResult {
	c.calls++
	return c.result
}

var fixedNow = time.Date(2024, 5, 17, 9, 30, 5, 0, time.UTC)

type fixture struct {
	tracker  *session.Tracker
	rows     *memoryRows
	photos   *countingResolver
	recorder *Recorder
}

func newFixture() *fixture {
	tr := session.NewTracker(state.NewMemoryStore(), menu)
	rows := &memoryRows{}
	photos := &countingResolver{result: PhotoOK(PhotoRef{URL: "https://files.example.com/p.jpg"})}
	rec := NewRecorder(tr, Rows(rows), photos, Options{
		Now:      func() time.Time { return fixedNow },
		Location: time.UTC,
	})
	return &fixture{tracker: tr, rows: rows, photos: photos, recorder: rec}
}

func (f *fixture) selectFor(t *testing.T, userID int64, name string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.tracker.Start(ctx, userID); err != nil {
		t.Fatalf("start: %v", err)
	}
	sel, err := f.tracker.SelectEstablishment(ctx, userID, name)
	if err != nil || !sel.Matched {
		t.Fatalf("select %q: %+v %v", name, sel, err)
	}
}

func TestRecordTextUsesSelectedEstablishment(t *testing.T) {
	for _, name := range menu {
		f := newFixture()
		f.selectFor(t, 1, name)

		rec, err := f.recorder.RecordText(context.Background(), 1, "Great service")
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if rec.Establishment != name {
			t.Fatalf("receipt establishment = %q", rec.Establishment)
		}
		want := []string{"2024-05-17 09:30:05", name, "Great service", "", ""}
		if len(f.rows.rows) != 1 {
			t.Fatalf("rows = %d", len(f.rows.rows))
		}
		assertRow(t, f.rows.rows[0], want)
		if f.photos.calls != 0 {
			t.Fatal("text submission resolved a photo")
		}
		if phase, _ := f.tracker.Phase(context.Background(), 1); phase != session.PhaseIdle {
			t.Fatalf("session not cleared: %q", phase)
		}
	}
}

func TestRecordWithoutSelectionWritesNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.recorder.RecordText(ctx, 1, "hello"); !errors.Is(err, ErrNoEstablishmentSelected) {
		t.Fatalf("text err = %v", err)
	}
	if _, err := f.recorder.RecordPhoto(ctx, 1, Photo{FileID: "f"}, "cap"); !errors.Is(err, ErrNoEstablishmentSelected) {
		t.Fatalf("photo err = %v", err)
	}

	_, _ = f.tracker.Start(ctx, 1)
	if _, err := f.recorder.RecordText(ctx, 1, "still no choice"); !errors.Is(err, ErrNoEstablishmentSelected) {
		t.Fatalf("awaiting establishment err = %v", err)
	}
	if len(f.rows.rows) != 0 || f.photos.calls != 0 {
		t.Fatalf("rows=%d photo calls=%d", len(f.rows.rows), f.photos.calls)
	}
	if phase, _ := f.tracker.Phase(ctx, 1); phase != session.PhaseAwaitingEstablishment {
		t.Fatalf("rejected submission changed phase to %q", phase)
	}
}

func TestRecordPhotoCaption(t *testing.T) {
	cases := []struct {
		caption string
	}{
		{"Lovely terrace"},
		{""},
	}
	for _, tc := range cases {
		f := newFixture()
		f.selectFor(t, 2, "Blue Door")
		rec, err := f.recorder.RecordPhoto(context.Background(), 2, Photo{FileID: "file-1"}, tc.caption)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if rec.PhotoDropped || !rec.HasPhoto {
			t.Fatalf("receipt = %+v", rec)
		}
		assertRow(t, f.rows.rows[0], []string{
			"2024-05-17 09:30:05",
			"Blue Door",
			tc.caption,
			`=IMAGE("https://files.example.com/p.jpg")`,
			"https://files.example.com/p.jpg",
		})
		if f.photos.calls != 1 {
			t.Fatalf("photo calls = %d", f.photos.calls)
		}
	}
}

func TestRecordPhotoFailureFallsBackToTextOnly(t *testing.T) {
	f := newFixture()
	f.photos.result = PhotoFailed(ErrPhotoFetchFailed)
	f.selectFor(t, 3, "Good Company")

	rec, err := f.recorder.RecordPhoto(context.Background(), 3, Photo{FileID: "gone"}, "caption kept")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !rec.PhotoDropped || !errors.Is(rec.PhotoErr, ErrPhotoFetchFailed) {
		t.Fatalf("receipt = %+v", rec)
	}
	assertRow(t, f.rows.rows[0], []string{"2024-05-17 09:30:05", "Good Company", "caption kept", "", ""})
}

func TestRecordPhotoWithoutResolverDropsPhoto(t *testing.T) {
	f := newFixture()
	f.recorder = NewRecorder(f.tracker, Rows(f.rows), nil, Options{Now: func() time.Time { return fixedNow }})
	f.selectFor(t, 3, "Good Company")
	rec, err := f.recorder.RecordPhoto(context.Background(), 3, Photo{FileID: "x"}, "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !rec.PhotoDropped {
		t.Fatal("photo should be dropped without a resolver")
	}
}

func TestWriteFailureReportsUpstreamAndClearsSession(t *testing.T) {
	f := newFixture()
	boom := errors.New("sheets: 503 backend error")
	f.rows.err = boom
	f.selectFor(t, 4, "Good Company")

	_, err := f.recorder.RecordText(context.Background(), 4, "Great service")
	if !errors.Is(err, ErrUpstreamUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if phase, _ := f.tracker.Phase(context.Background(), 4); phase != session.PhaseIdle {
		t.Fatalf("session not cleared after failure: %q", phase)
	}
}

func TestEmptySubmissionIsRecorded(t *testing.T) {
	f := newFixture()
	f.selectFor(t, 5, "Blue Door")
	if _, err := f.recorder.RecordText(context.Background(), 5, ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	assertRow(t, f.rows.rows[0], []string{"2024-05-17 09:30:05", "Blue Door", "", "", ""})
}

func TestNSubmissionsProduceNRows(t *testing.T) {
	f := newFixture()
	const n = 5
	for i := 0; i < n; i++ {
		uid := int64(10 + i)
		f.selectFor(t, uid, menu[i%len(menu)])
		var err error
		if i%2 == 0 {
			_, err = f.recorder.RecordText(context.Background(), uid, "")
		} else {
			_, err = f.recorder.RecordPhoto(context.Background(), uid, Photo{FileID: "p"}, "")
		}
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if len(f.rows.rows) != n {
		t.Fatalf("rows = %d, want %d", len(f.rows.rows), n)
	}
	for _, row := range f.rows.rows {
		if len(row) != 5 {
			t.Fatalf("row width = %d", len(row))
		}
	}
}

type failingSessions struct{}

func (failingSessions) Establishment(context.Context, int64) (string, bool, error) {
	return "", false, state.ErrStoreUnavailable
}
func (failingSessions) Finish(context.Context, int64) error { return nil }

func TestSessionStoreFailureIsUpstream(t *testing.T) {
	rows := &memoryRows{}
	rec := NewRecorder(failingSessions{}, Rows(rows), nil, Options{})
	_, err := rec.RecordText(context.Background(), 1, "x")
	if !errors.Is(err, ErrUpstreamUnavailable) || !errors.Is(err, state.ErrStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if len(rows.rows) != 0 {
		t.Fatal("row written despite session failure")
	}
}

func TestPhotoRefFormulaEscapesQuotes(t *testing.T) {
	ref := PhotoRef{URL: `https://x/a"b.jpg`}
	if got := ref.Formula(); got != `=IMAGE("https://x/a""b.jpg")` {
		t.Fatalf("formula = %s", got)
	}
	if (PhotoRef{}).Formula() != "" {
		t.Fatal("empty ref should have empty formula")
	}
}

func TestTimestampUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	f := newFixture()
	f.recorder = NewRecorder(f.tracker, Rows(f.rows), nil, Options{
		Now:      func() time.Time { return fixedNow },
		Location: loc,
	})
	f.selectFor(t, 1, "Blue Door")
	if _, err := f.recorder.RecordText(context.Background(), 1, "x"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := f.rows.rows[0][0]; got != "2024-05-17 12:30:05" {
		t.Fatalf("timestamp = %q", got)
	}
}

func assertRow(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("row = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row[%d] = %q, want %q (row %q)", i, got[i], want[i], got)
		}
	}
}
