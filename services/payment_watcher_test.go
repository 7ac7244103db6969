package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func testWatcherConfig(baseURL string, maxChecks int) PaymentWatcherConfig {
	return PaymentWatcherConfig{
		BaseURL:      baseURL,
		FrontendURL:  "https://dirwaza.example/booking/result",
		Interval:     time.Millisecond,
		MaxChecks:    maxChecks,
		DisplayDelay: -1, // clamped to zero so tests do not sleep
	}
}

// verifyServer returns "pending" until the given attempt, then the final
// status, and counts how many polls arrived.
func verifyServer(finalStatus string, finalOn int) (*httptest.Server, *int) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := PaymentStatusPending
		if calls >= finalOn {
			status = finalStatus
		}
		fmt.Fprintf(w, `{"paymentStatus": %q}`, status)
	}))
	return server, &calls
}

func TestPaymentWatcher_SuccessOnLastAttempt(t *testing.T) {
	server, calls := verifyServer(PaymentStatusPaid, 20)
	defer server.Close()

	var notified string
	var redirected string
	w := NewPaymentWatcher(testWatcherConfig(server.URL, 20))
	w.Notify = func(message string) { notified = message }
	w.Redirect = func(target string) { redirected = target }

	if !w.Start("DIRW-LAST") {
		t.Fatal("Start() returned false on idle watcher")
	}
	if got := w.Wait(); got != WatcherSuccess {
		t.Fatalf("final state = %q, want success", got)
	}
	if *calls != 20 {
		t.Errorf("polled %d times, want 20", *calls)
	}
	if w.Attempts() != 20 {
		t.Errorf("Attempts() = %d, want 20", w.Attempts())
	}
	if notified != "تم الدفع بنجاح" {
		t.Errorf("notification = %q", notified)
	}
	if redirected != "https://dirwaza.example/booking/result?payment=paid&reference=DIRW-LAST" {
		t.Errorf("redirect = %q", redirected)
	}
}

func TestPaymentWatcher_FailedStopsEarly(t *testing.T) {
	server, calls := verifyServer(PaymentStatusFailed, 3)
	defer server.Close()

	var redirected string
	w := NewPaymentWatcher(testWatcherConfig(server.URL, 20))
	w.Redirect = func(target string) { redirected = target }

	w.Start("DIRW-FAIL")
	if got := w.Wait(); got != WatcherFailed {
		t.Fatalf("final state = %q, want failed", got)
	}
	if *calls != 3 {
		t.Errorf("polled %d times, want 3", *calls)
	}
	if !strings.Contains(redirected, "payment=failed") {
		t.Errorf("redirect = %q, want payment=failed", redirected)
	}
}

func TestPaymentWatcher_TimeoutAtBudget(t *testing.T) {
	server, calls := verifyServer(PaymentStatusPaid, 1000)
	defer server.Close()

	w := NewPaymentWatcher(testWatcherConfig(server.URL, 5))
	w.Start("DIRW-SLOW")
	if got := w.Wait(); got != WatcherTimeout {
		t.Fatalf("final state = %q, want timeout", got)
	}
	if *calls != 5 {
		t.Errorf("polled %d times, want exactly 5", *calls)
	}
}

func TestPaymentWatcher_ErrorWhenBudgetEndsOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := NewPaymentWatcher(testWatcherConfig(server.URL, 3))
	w.Start("DIRW-ERR")
	if got := w.Wait(); got != WatcherError {
		t.Fatalf("final state = %q, want error", got)
	}
	if w.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", w.Attempts())
	}
}

func TestPaymentWatcher_ErrorsShareTheBudget(t *testing.T) {
	// Two erroring polls then success: errors must count as attempts but
	// not end the loop while budget remains.
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"paymentStatus": %q}`, PaymentStatusPaid)
	}))
	defer server.Close()

	w := NewPaymentWatcher(testWatcherConfig(server.URL, 10))
	w.Start("DIRW-FLAKY")
	if got := w.Wait(); got != WatcherSuccess {
		t.Fatalf("final state = %q, want success", got)
	}
	if calls != 3 {
		t.Errorf("polled %d times, want 3", calls)
	}
}

func TestPaymentWatcher_StartWhilePollingIsNoOp(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprintf(w, `{"paymentStatus": %q}`, PaymentStatusPaid)
	}))
	defer server.Close()
	defer once.Do(func() { close(release) })

	w := NewPaymentWatcher(testWatcherConfig(server.URL, 5))
	if !w.Start("DIRW-A") {
		t.Fatal("first Start() returned false")
	}
	if w.Start("DIRW-B") {
		t.Error("second Start() while polling returned true")
	}
	if w.State() != WatcherPolling {
		t.Errorf("state = %q, want polling", w.State())
	}

	once.Do(func() { close(release) })
	if got := w.Wait(); got != WatcherSuccess {
		t.Fatalf("final state = %q, want success", got)
	}
}

func TestPaymentWatcher_Defaults(t *testing.T) {
	w := NewPaymentWatcher(PaymentWatcherConfig{})
	if w.config.Interval != 3*time.Second {
		t.Errorf("default Interval = %v, want 3s", w.config.Interval)
	}
	if w.config.MaxChecks != 20 {
		t.Errorf("default MaxChecks = %d, want 20", w.config.MaxChecks)
	}
	if w.config.DisplayDelay != 2*time.Second {
		t.Errorf("default DisplayDelay = %v, want 2s", w.config.DisplayDelay)
	}

	clamped := NewPaymentWatcher(PaymentWatcherConfig{DisplayDelay: -time.Second})
	if clamped.config.DisplayDelay != 0 {
		t.Errorf("negative DisplayDelay = %v, want 0", clamped.config.DisplayDelay)
	}
}

func TestPaymentWatcher_OutcomeURL(t *testing.T) {
	w := NewPaymentWatcher(PaymentWatcherConfig{FrontendURL: "https://dirwaza.example/result"})

	tests := []struct {
		outcome   WatcherState
		reference string
		want      string
	}{
		{WatcherSuccess, "DIRW-1", "https://dirwaza.example/result?payment=paid&reference=DIRW-1"},
		{WatcherFailed, "DIRW-1", "https://dirwaza.example/result?payment=failed&reference=DIRW-1"},
		{WatcherTimeout, "DIRW-1", "https://dirwaza.example/result?payment=timeout&reference=DIRW-1"},
		{WatcherError, "", "https://dirwaza.example/result?payment=error"},
	}
	for _, tt := range tests {
		if got := w.OutcomeURL(tt.outcome, tt.reference); got != tt.want {
			t.Errorf("OutcomeURL(%q, %q) = %q, want %q", tt.outcome, tt.reference, got, tt.want)
		}
	}
}

func TestPaymentWatcher_DetectFromURL(t *testing.T) {
	t.Run("failure URL without reference redirects immediately", func(t *testing.T) {
		var redirected string
		w := NewPaymentWatcher(testWatcherConfig("http://unused", 5))
		w.Redirect = func(target string) { redirected = target }

		if !w.DetectFromURL("https://gateway.example/payment/failure?status=Failed") {
			t.Fatal("failure URL not detected")
		}
		if !strings.Contains(redirected, "payment=failed") {
			t.Errorf("redirect = %q, want payment=failed", redirected)
		}
	})

	t.Run("success URL with reference confirms against backend", func(t *testing.T) {
		server, calls := verifyServer(PaymentStatusPaid, 1)
		defer server.Close()

		w := NewPaymentWatcher(testWatcherConfig(server.URL, 5))
		if !w.DetectFromURL("https://gateway.example/payment/success?reference=DIRW-OK") {
			t.Fatal("success URL not detected")
		}
		if got := w.Wait(); got != WatcherSuccess {
			t.Fatalf("final state = %q, want success", got)
		}
		if *calls != 1 {
			t.Errorf("polled %d times, want 1", *calls)
		}
	})

	t.Run("neutral URL is ignored", func(t *testing.T) {
		w := NewPaymentWatcher(testWatcherConfig("http://unused", 5))
		if w.DetectFromURL("https://gateway.example/checkout?step=2") {
			t.Error("neutral URL reported as detected")
		}
		if w.State() != WatcherIdle {
			t.Errorf("state = %q, want idle", w.State())
		}
	})
}
