package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog-scraper/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type sentMessage struct {
	chatID string
	text   string
}

// botAPIServer fakes the two Bot API methods the notifier uses
func botAPIServer(t *testing.T, sent *[]sentMessage, failSend bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Catalog","username":"catalog_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if failSend {
				io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
				return
			}
			r.ParseForm()
			*sent = append(*sent, sentMessage{chatID: r.FormValue("chat_id"), text: r.FormValue("text")})
			io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":99,"type":"private"},"text":"ok"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTelegram(t *testing.T, srv *httptest.Server) *Telegram {
	t.Helper()
	logger, _ := test.NewNullLogger()
	tg, err := NewTelegramWithEndpoint("token", srv.URL+"/bot%s/%s", 99, logrus.NewEntry(logger))
	if err != nil {
		t.Fatalf("NewTelegramWithEndpoint() error = %v", err)
	}
	return tg
}

func TestTelegramWrite(t *testing.T) {
	var sent []sentMessage
	srv := botAPIServer(t, &sent, false)
	defer srv.Close()

	tg := newTelegram(t, srv)
	records := models.Records([]models.LinkRecord{"/a", "/b", "/c"})
	if err := tg.Write(context.Background(), "links/page-1", records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].chatID != "99" {
		t.Errorf("chat_id = %q, want 99", sent[0].chatID)
	}
	if sent[0].text != "collected 3 records for links/page-1" {
		t.Errorf("text = %q", sent[0].text)
	}
}

func TestTelegramWriteFailure(t *testing.T) {
	var sent []sentMessage
	srv := botAPIServer(t, &sent, true)
	defer srv.Close()

	if err := newTelegram(t, srv).Write(context.Background(), "links", nil); err == nil {
		t.Error("expected error when the Bot API rejects the message")
	}
}

func TestMessage(t *testing.T) {
	if got := Message("products", 0); got != "collected 0 records for products" {
		t.Errorf("Message() = %q", got)
	}
}
