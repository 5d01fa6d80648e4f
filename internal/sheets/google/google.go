// Package google exports week summaries to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"buckets/internal/core"
	"buckets/internal/log"
	ports "buckets/internal/sheets"
)

const defaultSheetName = "Buckets"

// Config selects the spreadsheet and the service account used to reach it.
// When both credential fields are empty GOOGLE_APPLICATION_CREDENTIALS is used.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
	now           func() time.Time
}

// Ensure interface conformance
var (
	_ ports.WeekExporter = (*Client)(nil)
	_ ports.WeekReader   = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := loadCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "sheet", sheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func loadCredentials(ctx context.Context, cfg Config, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) sheetRange() string {
	return fmt.Sprintf("%s!A:%c", c.sheetName, 'A'+numCols-1)
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetRange()).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.sheetRange(), err)
	}
	return resp.Values, nil
}

// ExportWeek rewrites the sheet with the user's week replaced by s.
func (c *Client) ExportWeek(ctx context.Context, userID string, s core.WeekSummary) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	if userID == "" {
		return 0, core.ErrEmptyUser
	}

	existing, err := c.readAll(ctx)
	if err != nil {
		return 0, err
	}

	at := c.now()
	rows := ports.RowsFor(userID, s)
	fresh := make([][]any, len(rows))
	for i, r := range rows {
		fresh[i] = encodeRow(r, at)
	}
	values := mergeRows(existing, userID, s.WeekStart.String(), fresh)

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.sheetRange(), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("clear %s: %w", c.sheetRange(), err)
	}
	target := fmt.Sprintf("%s!A1", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("write %s: %w", target, err)
	}

	c.logger.InfoContext(ctx, "Exported week",
		log.FieldUserID, userID,
		log.FieldWeekStart, s.WeekStart.String(),
		"rows", len(fresh),
		"sheet_rows", len(values))
	return len(fresh), nil
}

// ReadWeek returns the exported rows of a user's week.
func (c *Client) ReadWeek(ctx context.Context, userID string, week core.Date) ([]ports.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []ports.Row
	for _, v := range values {
		r, ok := decodeRow(toStrings(v))
		if !ok || r.UserID != userID || !r.WeekStart.Equal(week) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
