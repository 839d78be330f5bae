package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/resilience"
)

type storageFake struct {
	content string
}

func (s storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (s storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
}

func TestClientSendsMultipartFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		raw, _ := io.ReadAll(file)
		if header.Filename != "scan.png" || string(raw) != "PNGDATA" {
			t.Errorf("unexpected upload %s %q", header.Filename, raw)
		}
		_, _ = w.Write([]byte(`{"text":"  Patient Name: Emily Davis \n"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, storageFake{content: "PNGDATA"}, fastExecutor())
	text, err := client.Extract(context.Background(), &domain.Document{Filename: "scan.png", StoragePath: "x_scan.png"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Patient Name: Emily Davis" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "engine warming up", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, storageFake{content: "x"}, fastExecutor())
	_, err := client.Extract(context.Background(), &domain.Document{Filename: "scan.png"})
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestMockTextByFilename(t *testing.T) {
	cases := map[string]string{
		"denial_letter.png":   "Denial Code: CO-50",
		"hospital_bill.jpg":   "CPT Code: 74160",
		"doctor_note.png":     "Medical Necessity:",
		"insurance_card.jpeg": "Member ID: BCB123456789",
		"preauth.png":         "Authorization Number: AUTH-2024-88172",
		"random.png":          "Medical Bill",
	}
	for filename, want := range cases {
		if got := MockText(filename); !strings.Contains(got, want) {
			t.Fatalf("MockText(%s) does not contain %q", filename, want)
		}
	}
}
