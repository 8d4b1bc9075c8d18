// Package sheets appends result rows to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Config identifies the destination sheet.
type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
}

// Store implements audit.TabularStore over the Sheets values API.
type Store struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	rng           string
}

// New creates a Store around an existing Sheets service.
func New(svc *sheets.Service, cfg Config) (*Store, error) {
	if svc == nil {
		return nil, fmt.Errorf("sheets service is required")
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if cfg.Range == "" {
		return nil, fmt.Errorf("range is required")
	}
	return &Store{
		values:        sheets.NewSpreadsheetsValuesService(svc),
		spreadsheetID: cfg.SpreadsheetID,
		rng:           cfg.Range,
	}, nil
}

// Open builds a Sheets service from cfg plus any extra client options.
func Open(ctx context.Context, cfg Config, extra ...option.ClientOption) (*Store, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheets.NewService(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, cfg)
}

// Append adds row after the last row of the configured range.
func (s *Store) Append(ctx context.Context, row []any) error {
	vr := &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]interface{}{row},
	}
	_, err := s.values.Append(s.spreadsheetID, s.rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", s.rng, err)
	}
	return nil
}

// EnsureHeader writes header into the first row of the sheet when that row is
// empty, and reports a mismatch when it holds something else.
func (s *Store) EnsureHeader(ctx context.Context, header []string) error {
	headerRange := sheetName(s.rng) + "!1:1"
	resp, err := s.values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		row := make([]interface{}, len(header))
		for i, h := range header {
			row[i] = h
		}
		_, err := s.values.Update(s.spreadsheetID, headerRange, &sheets.ValueRange{Values: [][]interface{}{row}}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		return nil
	}
	got := resp.Values[0]
	if len(got) != len(header) {
		return fmt.Errorf("header has %d columns, want %d", len(got), len(header))
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(fmt.Sprint(got[i])), h) {
			return fmt.Errorf("header column %d is %q, want %q", i+1, got[i], h)
		}
	}
	return nil
}

func sheetName(rng string) string {
	if i := strings.Index(rng, "!"); i >= 0 {
		return rng[:i]
	}
	return rng
}
