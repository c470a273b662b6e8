package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"catalog-scraper/models"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"google.golang.org/api/option"
)

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"products/fresh", "products_fresh"},
		{"a\\b?c*d[e]", "a_b_c_d_e_"},
		{"  spaced  ", "spaced"},
		{"", "Sheet1"},
		{"   ", "Sheet1"},
	}
	for _, tt := range tests {
		if got := sanitizeSheetName(tt.in); got != tt.want {
			t.Errorf("sanitizeSheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://docs.google.com/spreadsheets/d/abc123/edit", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123/edit?usp=sharing", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123?x=1", "abc123"},
		{"https://example.com/nothing", ""},
	}
	for _, tt := range tests {
		if got := ExtractSpreadsheetID(tt.url); got != tt.want {
			t.Errorf("ExtractSpreadsheetID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestSheetRange(t *testing.T) {
	if got := sheetRange("it's here"); got != "'it''s here'!A1" {
		t.Errorf("sheetRange() = %q", got)
	}
}

func TestWriterWrite(t *testing.T) {
	var addedTitle string
	var written [][]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
			var req struct {
				Requests []struct {
					AddSheet struct {
						Properties struct {
							Title string `json:"title"`
						} `json:"properties"`
					} `json:"addSheet"`
				} `json:"requests"`
			}
			json.Unmarshal(body, &req)
			if len(req.Requests) == 1 {
				addedTitle = req.Requests[0].AddSheet.Properties.Title
			}
			io.WriteString(w, `{"spreadsheetId":"sheet-id","replies":[{"addSheet":{"properties":{"sheetId":42}}}]}`)
		case strings.Contains(r.URL.Path, "/values/"):
			var vr struct {
				Values [][]interface{} `json:"values"`
			}
			json.Unmarshal(body, &vr)
			written = vr.Values
			io.WriteString(w, `{"spreadsheetId":"sheet-id","updatedRows":3}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	ctx := context.Background()
	w, err := NewWriterWithOptions(ctx, "sheet-id", logrus.NewEntry(logger),
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewWriterWithOptions() error = %v", err)
	}
	w.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	records := models.Records([]models.Product{{Name: "Milk", Price: "$2.99"}, {Name: "Eggs", Price: "$4.50"}})
	if err := w.Write(ctx, "products/dairy", records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if addedTitle != "products_dairy 2024-05-01 12:00:00" {
		t.Errorf("sheet title = %q", addedTitle)
	}
	want := [][]interface{}{
		{"Source", "products/dairy"},
		{"Product Name", "Price"},
		{"Milk", "$2.99"},
		{"Eggs", "$4.50"},
	}
	if diff := cmp.Diff(want, written); diff != "" {
		t.Errorf("written values mismatch (-want +got):\n%s", diff)
	}
}

func TestWriterWriteEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	w, err := NewWriterWithOptions(context.Background(), "sheet-id", logrus.NewEntry(logger),
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewWriterWithOptions() error = %v", err)
	}
	if err := w.Write(context.Background(), "links", nil); err != nil {
		t.Errorf("Write() error = %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := validateCredentials([]byte(`{"type":"service_account"}`)); err != nil {
		t.Errorf("service account rejected: %v", err)
	}
	if err := validateCredentials([]byte(`{"type":"authorized_user"}`)); err == nil {
		t.Error("expected error for non service account")
	}
	if err := validateCredentials([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := truncateRunes(long, maxSheetNameLength)
	if !utf8.ValidString(got) {
		t.Errorf("truncateRunes() produced invalid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != maxSheetNameLength {
		t.Errorf("rune count = %d, want %d", n, maxSheetNameLength)
	}
	if got := truncateRunes("products", maxSheetNameLength); got != "products" {
		t.Errorf("short name changed to %q", got)
	}
}
