package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"catalog-scraper/models"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const maxSheetNameLength = 100

// Writer handles writing record sets to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *logrus.Entry
	now           func() time.Time
}

// NewWriter creates a new Google Sheets writer. Credentials are read from
// credentialsPath, or from GOOGLE_SHEETS_CREDENTIALS when the path is empty.
func NewWriter(ctx context.Context, spreadsheetID, credentialsPath string, logger *logrus.Entry) (*Writer, error) {
	var credsJSON []byte
	var err error

	if credentialsPath != "" {
		credsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		logger.WithField("bytes", len(credsEnv)).Debug("reading credentials from GOOGLE_SHEETS_CREDENTIALS")
		credsJSON = []byte(credsEnv)
	}

	if err := validateCredentials(credsJSON); err != nil {
		return nil, err
	}

	return NewWriterWithOptions(ctx, spreadsheetID, logger, option.WithCredentialsJSON(credsJSON))
}

// NewWriterWithOptions creates a writer with explicit client options
func NewWriterWithOptions(ctx context.Context, spreadsheetID string, logger *logrus.Entry, opts ...option.ClientOption) (*Writer, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func validateCredentials(credsJSON []byte) error {
	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}
	return nil
}

// Write implements persist.Sink. Every call creates a new sheet named after
// name and the current time.
func (w *Writer) Write(ctx context.Context, name string, records []models.Record) error {
	if len(records) == 0 {
		w.logger.WithField("name", name).Info("no records to write")
		return nil
	}
	sheetName := fmt.Sprintf("%s %s", name, w.now().Format("2006-01-02 15:04:05"))
	_, _, err := w.CreateSheetAndWriteRecords(ctx, sheetName, records, name)
	return err
}

// CreateSheetAndWriteRecords creates a new sheet at the beginning of the
// spreadsheet and writes records to it. source is optional; when set it is
// written as a metadata row above the header.
// Returns the sheet name and sheet ID (gid) that was created.
func (w *Writer) CreateSheetAndWriteRecords(ctx context.Context, sheetName string, records []models.Record, source string) (string, int64, error) {
	sheetName = truncateRunes(sanitizeSheetName(sheetName), maxSheetNameLength)

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: 0,
						// Index 0 is the zero value and would be dropped otherwise
						ForceSendFields: []string{"Index"},
					},
				},
			},
		},
	}

	batchUpdateResp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(batchUpdateResp.Replies) > 0 && batchUpdateResp.Replies[0].AddSheet != nil {
		sheetID = batchUpdateResp.Replies[0].AddSheet.Properties.SheetId
	}
	logger := w.logger.WithFields(logrus.Fields{"sheet": sheetName, "sheet_id": sheetID})
	logger.Debug("created sheet")

	valueRange := &sheets.ValueRange{Values: sheetValues(records, source)}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, sheetRange(sheetName), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	logger.WithField("records", len(records)).Info("wrote records to sheet")
	return sheetName, sheetID, nil
}

// sheetValues lays out the optional metadata row, the header taken from the
// first record, and one row per record
func sheetValues(records []models.Record, source string) [][]interface{} {
	var values [][]interface{}
	if source != "" {
		values = append(values, []interface{}{"Source", source})
	}
	if len(records) == 0 {
		return values
	}

	values = append(values, toRow(records[0].Columns()))
	for _, r := range records {
		values = append(values, toRow(r.Values()))
	}
	return values
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func sheetRange(sheetName string) string {
	return fmt.Sprintf("'%s'!A1", strings.ReplaceAll(sheetName, "'", "''"))
}

// truncateRunes cuts s to at most n characters without splitting a rune
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ]
	invalidChars := []string{"/", "\\", "?", "*", "[", "]"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
