package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/existflow/taskflow/internal/config"
)

type recorder struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.DefaultConfig().Email

	if _, ok := New(cfg).(LogSender); !ok {
		t.Fatalf("expected log sender without credentials")
	}

	cfg.ResendAPIKey = "re_123"
	if _, ok := New(cfg).(*ResendSender); !ok {
		t.Fatalf("expected resend sender with an API key")
	}

	cfg.SMTPHost, cfg.SMTPUser, cfg.SMTPPass = "smtp.example.com", "user", "pass"
	if _, ok := New(cfg).(*SMTPSender); !ok {
		t.Fatalf("expected smtp sender when smtp is configured")
	}
}

func TestResendSender(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewResendSender("TaskFlow <no-reply@x.com>", "re_123")
	s.Endpoint = srv.URL

	err := s.Send(context.Background(), Message{To: "ann@x.com", Subject: "Hi", Body: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer re_123" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if len(got.To) != 1 || got.To[0] != "ann@x.com" || got.Subject != "Hi" || got.Text != "hello" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestResendSenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewResendSender("from@x.com", "bad")
	s.Endpoint = srv.URL

	if err := s.Send(context.Background(), Message{To: "ann@x.com"}); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestAsyncDeliversAndSwallowsErrors(t *testing.T) {
	rec := &recorder{err: errors.New("relay down")}
	a := NewAsync(rec)

	for i := 0; i < 3; i++ {
		if err := a.Send(context.Background(), Message{To: "ann@x.com"}); err != nil {
			t.Fatalf("async send should not fail: %v", err)
		}
	}
	a.Close()

	if len(rec.sent) != 3 {
		t.Fatalf("expected 3 deliveries after Close, got %d", len(rec.sent))
	}

	if err := a.Send(context.Background(), Message{To: "late@x.com"}); err != nil {
		t.Fatalf("send after close: %v", err)
	}
	if len(rec.sent) != 3 {
		t.Fatalf("expected message after close to be dropped")
	}
}

func TestSMTPRender(t *testing.T) {
	s := &SMTPSender{From: "TaskFlow <no-reply@x.com>"}
	raw := string(s.render(Message{To: "ann@x.com", Subject: "Verify", Body: "line1\nline2"}))

	want := "From: TaskFlow <no-reply@x.com>\r\nTo: ann@x.com\r\nSubject: Verify\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\nline1\r\nline2"
	if raw != want {
		t.Fatalf("unexpected message:\n%q", raw)
	}

	if got := envelopeFrom(s.From, "user"); got != "no-reply@x.com" {
		t.Fatalf("unexpected envelope sender %q", got)
	}
	if got := envelopeFrom("", "user@x.com"); got != "user@x.com" {
		t.Fatalf("expected fallback sender, got %q", got)
	}
}
