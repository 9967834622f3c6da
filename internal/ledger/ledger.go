// Package ledger tracks transferred items in a Google Sheets spreadsheet and
// answers dedup queries against it.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/meetops/zoom-to-drive/internal/googleauth"
	"github.com/meetops/zoom-to-drive/internal/logging"
)

// SummaryMarker is the file-types cell value that marks a row as an AI
// summary transfer. Recording rows never carry it, which keeps the two kinds
// in distinct idempotency namespaces.
const SummaryMarker = "AI Summary"

const (
	trackingSheet = "Tracking"
	errorSheet    = "Errors"
)

// Kind distinguishes recording transfers from summary transfers
type Kind string

const (
	KindRecording Kind = "recording"
	KindSummary   Kind = "summary"
)

// Record is one tracking row: a successfully processed item
type Record struct {
	Topic       string
	Date        string // yyyy-MM-dd
	FileTypes   string // comma-separated types, or SummaryMarker
	FolderName  string
	FolderLink  string
	Transferred time.Time
	Host        string
}

// Ledger is the Sheets-backed tracking store. Load must be called once per
// run before dedup queries; it reads the whole sheet and keeps an in-memory
// index that Append maintains for the rest of the run.
type Ledger struct {
	service       *sheets.Service
	spreadsheetID string
	index         map[string]bool
	loaded        bool
}

// NewLedger creates a ledger authenticated with a service account
func NewLedger(ctx context.Context, credentialsFile, spreadsheetID string) (*Ledger, error) {
	ts, err := googleauth.TokenSource(ctx, credentialsFile, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return NewLedgerWithService(service, spreadsheetID), nil
}

// NewLedgerWithService wraps an existing Sheets service (used in tests)
func NewLedgerWithService(service *sheets.Service, spreadsheetID string) *Ledger {
	return &Ledger{
		service:       service,
		spreadsheetID: spreadsheetID,
		index:         make(map[string]bool),
	}
}

// Load reads all tracking rows and builds the dedup index. An empty sheet
// gets the header row written first.
func (l *Ledger) Load(ctx context.Context) error {
	resp, err := l.service.Spreadsheets.Values.
		Get(l.spreadsheetID, trackingSheet+"!A:F").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to read tracking sheet: %w", err)
	}

	if len(resp.Values) == 0 {
		if err := l.writeHeader(ctx); err != nil {
			return err
		}
		l.loaded = true
		return nil
	}

	index := make(map[string]bool)
	for i, row := range resp.Values {
		if i == 0 {
			continue // header
		}
		if len(row) < 3 {
			continue
		}
		topic := cellString(row[0])
		date := NormalizeDate(cellString(row[1]))
		fileTypes := cellString(row[2])
		if topic == "" || date == "" {
			continue
		}
		index[dedupKey(topic, date, kindOfRow(fileTypes))] = true
	}

	l.index = index
	l.loaded = true
	return nil
}

// IsProcessed reports whether an item with this topic and date was already
// transferred as the given kind. Recording rows never satisfy summary
// lookups and vice versa.
func (l *Ledger) IsProcessed(topic, date string, kind Kind) bool {
	return l.index[dedupKey(topic, NormalizeDate(date), kind)]
}

// Append writes one tracking row and updates the in-run index. The folder
// cell is a HYPERLINK formula so the sheet shows a clickable folder name.
func (l *Ledger) Append(ctx context.Context, record Record) error {
	folderCell := record.FolderName
	if record.FolderLink != "" {
		folderCell = fmt.Sprintf(`=HYPERLINK("%s", "%s")`,
			record.FolderLink, strings.ReplaceAll(record.FolderName, `"`, `'`))
	}

	row := []interface{}{
		record.Topic,
		record.Date,
		record.FileTypes,
		folderCell,
		record.Transferred.Format(time.RFC3339),
		record.Host,
	}

	_, err := l.service.Spreadsheets.Values.
		Append(l.spreadsheetID, trackingSheet+"!A:F", &sheets.ValueRange{
			Values: [][]interface{}{row},
		}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append tracking row: %w", err)
	}

	l.index[dedupKey(record.Topic, NormalizeDate(record.Date), kindOfRow(record.FileTypes))] = true
	return nil
}

// LogError appends a row to the error sheet. Best-effort: failures are
// logged and swallowed so error reporting never takes down a run.
func (l *Ledger) LogError(ctx context.Context, message, trace string) {
	row := []interface{}{
		time.Now().Format(time.RFC3339),
		message,
		trace,
	}

	_, err := l.service.Spreadsheets.Values.
		Append(l.spreadsheetID, errorSheet+"!A:C", &sheets.ValueRange{
			Values: [][]interface{}{row},
		}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		logging.Warn("Failed to write error sheet row: %v", err)
	}
}

func (l *Ledger) writeHeader(ctx context.Context) error {
	header := []interface{}{"Topic", "Date", "Files", "Folder", "Transferred", "Host"}

	_, err := l.service.Spreadsheets.Values.
		Update(l.spreadsheetID, trackingSheet+"!A1:F1", &sheets.ValueRange{
			Values: [][]interface{}{header},
		}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write tracking header: %w", err)
	}
	return nil
}

func dedupKey(topic, date string, kind Kind) string {
	return strings.TrimSpace(topic) + "|" + date + "|" + string(kind)
}

func kindOfRow(fileTypes string) Kind {
	if strings.TrimSpace(fileTypes) == SummaryMarker {
		return KindSummary
	}
	return KindRecording
}

func cellString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// dateLayouts are the formats seen in stored date cells
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
}

// NormalizeDate reduces a stored date value to yyyy-MM-dd. Unparseable
// values are returned trimmed so comparisons stay stable.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}
