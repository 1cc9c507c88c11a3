// Package sheets writes submission rows to a Google Sheets worksheet.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/m3rciful/reviewbot/core/logger"
)

const (
	// ModeAppend uses values.append after the detected table.
	ModeAppend = "append"
	// ModeNextRow reads the sheet, then updates the first row past its end.
	ModeNextRow = "next_row"

	valueInput = "USER_ENTERED"
	component  = "store.sheets"
)

// valuesAPI is the slice of the Sheets API this package calls.
type valuesAPI interface {
	Append(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	FirstSheetTitle(ctx context.Context, spreadsheetID string) (string, error)
}

// Sheet is an opened worksheet.
type Sheet struct {
	api   valuesAPI
	id    string
	title string
	mode  string
}

// NewService creates a Sheets API client.
func NewService(ctx context.Context, opts ...option.ClientOption) (*gsheets.Service, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return svc, nil
}

// Open resolves the worksheet by title; an empty sheetName selects the
// first worksheet of the spreadsheet.
func Open(ctx context.Context, svc *gsheets.Service, spreadsheetID, sheetName string) (*Sheet, error) {
	return open(ctx, &serviceAPI{svc: svc}, spreadsheetID, sheetName)
}

func open(ctx context.Context, api valuesAPI, spreadsheetID, sheetName string) (*Sheet, error) {
	title := strings.TrimSpace(sheetName)
	if title == "" {
		first, err := api.FirstSheetTitle(ctx, spreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("sheets: open %s: %w", spreadsheetID, err)
		}
		title = first
	}
	logger.Info(ctx, component, "sheet.open",
		slog.String("status", "ok"),
		slog.String("sheet", title),
	)
	return &Sheet{api: api, id: spreadsheetID, title: title, mode: ModeAppend}, nil
}

// Title returns the worksheet title.
func (s *Sheet) Title() string { return s.title }

// SetWriteMode chooses how WriteRow places rows. Unknown modes fall back to append.
func (s *Sheet) SetWriteMode(mode string) {
	if mode == ModeNextRow {
		s.mode = ModeNextRow
		return
	}
	s.mode = ModeAppend
}

// WriteRow writes one row according to the write mode.
func (s *Sheet) WriteRow(ctx context.Context, row []string) error {
	start := time.Now()
	var (
		err   error
		rowNo int
	)
	if s.mode == ModeNextRow {
		rowNo, err = s.WriteNextRow(ctx, row)
	} else {
		err = s.AppendRow(ctx, row)
	}
	attrs := []slog.Attr{
		slog.String("sheet", s.title),
		slog.String("backend", s.mode),
		slog.Duration("duration", time.Since(start)),
	}
	if rowNo > 0 {
		attrs = append(attrs, slog.Int("row", rowNo))
	}
	if err != nil {
		logger.Error(ctx, component, "row.write", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		return err
	}
	logger.Debug(ctx, component, "row.write", append(attrs, slog.String("status", "ok"))...)
	return nil
}

// AppendRow appends row after the last row of the worksheet's table.
func (s *Sheet) AppendRow(ctx context.Context, row []string) error {
	if err := s.api.Append(ctx, s.id, s.a1("A1"), toValues(row)); err != nil {
		return fmt.Errorf("sheets: append: %w", err)
	}
	return nil
}

// UpdateRange overwrites the cells at rangeRef (A1 notation without sheet name).
func (s *Sheet) UpdateRange(ctx context.Context, rangeRef string, rows [][]string) error {
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, toValues(r)[0])
	}
	if err := s.api.Update(ctx, s.id, s.a1(rangeRef), values); err != nil {
		return fmt.Errorf("sheets: update %s: %w", rangeRef, err)
	}
	return nil
}

// AllValues returns every non-empty row of the worksheet as strings.
func (s *Sheet) AllValues(ctx context.Context) ([][]string, error) {
	raw, err := s.api.Get(ctx, s.id, quoteTitle(s.title))
	if err != nil {
		return nil, fmt.Errorf("sheets: get values: %w", err)
	}
	out := make([][]string, 0, len(raw))
	for _, r := range raw {
		row := make([]string, len(r))
		for i, cell := range r {
			row[i] = fmt.Sprint(cell)
		}
		out = append(out, row)
	}
	return out, nil
}

// WriteNextRow writes row at len(AllValues)+1 and returns that row number.
// Two concurrent callers may pick the same row; the last write wins.
func (s *Sheet) WriteNextRow(ctx context.Context, row []string) (int, error) {
	values, err := s.AllValues(ctx)
	if err != nil {
		return 0, err
	}
	next := len(values) + 1
	if err := s.UpdateRange(ctx, fmt.Sprintf("A%d", next), [][]string{row}); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Sheet) a1(ref string) string {
	return quoteTitle(s.title) + "!" + ref
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toValues(row []string) [][]any {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return [][]any{cells}
}

// serviceAPI calls the real Sheets API.
type serviceAPI struct {
	svc *gsheets.Service
}

func (a *serviceAPI) Append(ctx context.Context, id, rng string, values [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Append(id, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (a *serviceAPI) Update(ctx context.Context, id, rng string, values [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Update(id, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption(valueInput).
		Context(ctx).
		Do()
	return err
}

func (a *serviceAPI) Get(ctx context.Context, id, rng string) ([][]any, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (a *serviceAPI) FirstSheetTitle(ctx context.Context, id string) (string, error) {
	ss, err := a.svc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no sheets", id)
	}
	return ss.Sheets[0].Properties.Title, nil
}
