// Package google exports the ledger to a Google Sheets tab using a service
// account.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendsense/internal/core"
	"spendsense/internal/ledger"
	"spendsense/internal/log"
	ports "spendsense/internal/sheets"
)

const (
	DefaultSheetName  = "Ledger"
	DefaultRetryDelay = 30 * time.Second
)

var (
	ErrMissingSpreadsheetID = errors.New("missing spreadsheet id")
	ErrMissingCredentials   = errors.New("missing service account credentials")
)

var _ ports.LedgerExporter = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	attempts      uint
	retryDelay    time.Duration
	logger        *log.Logger
}

// Options configures New. ClientOptions override the credential based
// authentication entirely when set, which is how tests point the client
// at a local server.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON []byte
	Attempts        uint
	RetryDelay      time.Duration
	Logger          *log.Logger
	ClientOptions   []goption.ClientOption
}

// New creates a Sheets client for one spreadsheet tab.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, ErrMissingSpreadsheetID
	}
	if opts.SheetName == "" {
		opts.SheetName = DefaultSheetName
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}

	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		if len(opts.CredentialsJSON) == 0 {
			return nil, ErrMissingCredentials
		}
		clientOpts = []goption.ClientOption{
			goption.WithCredentialsJSON(opts.CredentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
		attempts:      opts.Attempts,
		retryDelay:    opts.RetryDelay,
		logger:        opts.Logger.WithComponent(log.ComponentExport),
	}, nil
}

// LoadCredentials returns the inline JSON when set, else the contents of
// path.
func LoadCredentials(inlineJSON, path string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	path = strings.TrimSpace(path)
	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, ErrMissingCredentials
	}
}

// Export clears the tab's four ledger columns and writes the header and every
// record from A1.
func (c *Client) Export(ctx context.Context, records []core.Expense) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	values := make([][]any, 0, len(records)+1)
	values = append(values, toRow(ledger.Header))
	for _, row := range ledger.Rows(records) {
		values = append(values, toRow(row))
	}

	clearRange := fmt.Sprintf("%s!A:D", c.sheetName)
	err := c.withRetry(ctx, func() error {
		_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	writeRange := fmt.Sprintf("%s!A1:D%d", c.sheetName, len(values))
	err = c.withRetry(ctx, func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, &gsheet.ValueRange{Values: values}).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("update %s: %w", writeRange, err)
	}

	c.logger.InfoContext(ctx, "Exported ledger to sheet",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(records),
		"range", writeRange)
	return writeRange, nil
}

// withRetry retries fn only when Sheets rate limits the request.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				c.logger.WarnContext(ctx, "Rate limited by sheets, will retry", log.FieldError, err)
				return true
			}
			return false
		}),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func toRow(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
