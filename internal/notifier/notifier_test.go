package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"PairSentinel/internal/discovery"
	"PairSentinel/internal/model"
	"PairSentinel/internal/strategy"
)

func testPair() *model.CointegratedPair {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	spread := []float64{-2, 0, 2}
	dates := make([]time.Time, len(spread))
	logA := make([]float64, len(spread))
	logB := make([]float64, len(spread))
	for i, s := range spread {
		dates[i] = start.AddDate(0, 0, i)
		logA[i] = math.Log(10 + s)
		logB[i] = math.Log(10)
	}
	return model.NewCointegratedPair("KO", "PEP", 1.000004, 0.123456789, 0.0004321, dates, logA, logB)
}

func TestFormatPairTable_Rounded(t *testing.T) {
	r := &discovery.Report{Pairs: []*model.CointegratedPair{testPair()}}
	out := FormatPairTable(r)
	for _, want := range []string{"KO", "PEP", "1.00000", "0.12346", "0.00043"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if got := FormatPairTable(&discovery.Report{}); !strings.Contains(got, "No cointegrated pairs") {
		t.Errorf("empty table = %q", got)
	}
}

func TestFormatSimulation(t *testing.T) {
	p := testPair()
	res, err := strategy.Simulate(p, 1.5, -1.5)
	if err != nil {
		t.Fatal(err)
	}
	out := FormatSimulation(p, res)
	if !strings.Contains(out, "ENTRY") || !strings.Contains(out, "EXIT") {
		t.Errorf("missing trades:\n%s", out)
	}
	if !strings.Contains(out, "Round trips: 1") {
		t.Errorf("missing summary:\n%s", out)
	}

	res, _ = strategy.Simulate(p, -1, 1)
	if out := FormatSimulation(p, res); !strings.Contains(out, "⚠️") {
		t.Errorf("missing bounds warning:\n%s", out)
	}
}

func TestFormatSummary_NoRun(t *testing.T) {
	if out := FormatSummary(nil, nil); !strings.Contains(out, "No discovery run yet") {
		t.Fatalf("summary = %q", out)
	}
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("abcdefghi\n", 10)
	chunks := splitMessage(text, 25)
	if strings.Join(chunks, "") != text {
		t.Fatal("chunks do not reassemble the message")
	}
	for _, c := range chunks {
		if len(c) > 25 {
			t.Fatalf("chunk too long: %d", len(c))
		}
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	n := NewTelegramNotifier(zerolog.Nop(), "TOKEN", "42", "")
	n.APIBase = srv.URL
	if err := n.Send("hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" || got["parse_mode"] != "HTML" {
		t.Fatalf("payload = %v", got)
	}
}

func TestTelegramNotifier_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier(zerolog.Nop(), "TOKEN", "42", "")
	n.APIBase = srv.URL
	if err := n.Send("x"); err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected status error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.SendWithRetry(ctx, "x", 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTelegramNotifier_Polling(t *testing.T) {
	var (
		mu      sync.Mutex
		served  bool
		replies []string
	)
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			mu.Lock()
			first := !served
			served = true
			mu.Unlock()
			if first {
				fmt.Fprint(w, `{"ok":true,"result":[{"update_id":7,"message":{"text":" /pairs "}}]}`)
				return
			}
			if r.URL.Query().Get("offset") != "8" {
				t.Errorf("offset = %s, want 8", r.URL.Query().Get("offset"))
			}
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			fmt.Fprint(w, `{"ok":true}`)
			close(done)
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier(zerolog.Nop(), "TOKEN", "42", "")
	n.APIBase = srv.URL
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string { return "got " + cmd })
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "got /pairs" {
		t.Fatalf("replies = %v", replies)
	}
}
