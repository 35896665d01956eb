package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "combos/internal/log"
	"combos/internal/sources"
)

// Client reads entry lines from one column range of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
	logger        *applog.Logger
}

var (
	_ sources.LinesReader = (*Client)(nil)
	_ sources.RangeReader = (*Client)(nil)
)

// NewFromEnv creates a read-only Sheets client using service account credentials.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, rng string, logger *applog.Logger) (*Client, error) {
	creds, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, spreadsheetID, rng, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

// NewWithOptions creates a client with explicit API options.
func NewWithOptions(ctx context.Context, spreadsheetID, rng string, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		rng:           rng,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}, nil
}

func credentialsFromEnv() ([]byte, error) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); raw != "" {
		return []byte(raw), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// ReadLines reads the configured range.
func (c *Client) ReadLines(ctx context.Context) ([]string, error) {
	return c.ReadRange(ctx, c.rng)
}

// ReadRange reads rng and returns the first cell of every row, trimmed.
// Empty rows come back as empty lines.
func (c *Client) ReadRange(ctx context.Context, rng string) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng = strings.TrimSpace(rng)
	if rng == "" {
		rng = c.rng
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	lines := columnLines(resp.Values)
	c.logger.DebugContext(ctx, "Sheet range read",
		applog.FieldOperation, applog.OpRead, "range", rng, "rows", len(lines))
	return lines, nil
}

// Range returns the default range read by ReadLines.
func (c *Client) Range() string {
	return c.rng
}
