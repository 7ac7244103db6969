package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Watcher states. The four result states are terminal: once reached, the
// watcher never transitions again.
type WatcherState string

const (
	WatcherIdle    WatcherState = "idle"
	WatcherPolling WatcherState = "polling"
	WatcherSuccess WatcherState = "success"
	WatcherFailed  WatcherState = "failed"
	WatcherTimeout WatcherState = "timeout"
	WatcherError   WatcherState = "error"
)

// Arabic notifications shown before redirecting, one per outcome.
var watcherMessages = map[WatcherState]string{
	WatcherSuccess: "تم الدفع بنجاح",
	WatcherFailed:  "فشلت عملية الدفع",
	WatcherTimeout: "انتهت مهلة انتظار الدفع",
	WatcherError:   "حدث خطأ أثناء التحقق من الدفع",
}

// Query values carried on the redirect URL, one per outcome.
var watcherOutcomes = map[WatcherState]string{
	WatcherSuccess: "paid",
	WatcherFailed:  "failed",
	WatcherTimeout: "timeout",
	WatcherError:   "error",
}

// PaymentWatcherConfig configures one watcher instance. Zero values fall
// back to the defaults used by the booking result page: 20 checks, 3
// seconds apart, 2 seconds of notification display before redirecting.
type PaymentWatcherConfig struct {
	BaseURL      string        // API base for the verify-and-update endpoint
	FrontendURL  string        // redirect target after a terminal outcome
	Interval     time.Duration // delay between polls
	MaxChecks    int           // attempt budget
	DisplayDelay time.Duration // how long the notification stays up
}

// PaymentWatcher polls the verification endpoint for one reference until
// the payment resolves or the attempt budget runs out, then notifies and
// redirects. One watcher runs at most one poll loop; a second Start while
// polling is a no-op.
type PaymentWatcher struct {
	config     PaymentWatcherConfig
	httpClient *http.Client

	mu        sync.Mutex
	state     WatcherState
	attempts  int
	reference string
	done      chan struct{}

	// Notify receives the localized outcome message; Redirect receives
	// the outcome URL. Either may be nil.
	Notify   func(message string)
	Redirect func(target string)
}

func NewPaymentWatcher(config PaymentWatcherConfig) *PaymentWatcher {
	if config.Interval <= 0 {
		config.Interval = 3 * time.Second
	}
	if config.MaxChecks <= 0 {
		config.MaxChecks = 20
	}
	if config.DisplayDelay < 0 {
		config.DisplayDelay = 0
	} else if config.DisplayDelay == 0 {
		config.DisplayDelay = 2 * time.Second
	}

	return &PaymentWatcher{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		state:      WatcherIdle,
	}
}

// State returns the current watcher state.
func (w *PaymentWatcher) State() WatcherState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Attempts returns how many polls have been issued.
func (w *PaymentWatcher) Attempts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}

// Start begins polling for the given reference. Returns false if a poll
// loop is already running.
func (w *PaymentWatcher) Start(reference string) bool {
	w.mu.Lock()
	if w.state == WatcherPolling {
		w.mu.Unlock()
		return false
	}
	w.state = WatcherPolling
	w.attempts = 0
	w.reference = reference
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.pollLoop(reference)
	return true
}

// Wait blocks until the watcher reaches a terminal state.
func (w *PaymentWatcher) Wait() WatcherState {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
	return w.State()
}

// pollResult is the explicit outcome of one poll attempt: a payment
// status, or the error that prevented reading one. Both count against
// the same attempt budget.
type pollResult struct {
	status string
	err    error
}

func (w *PaymentWatcher) pollLoop(reference string) {
	for {
		result := w.checkOnce(reference)

		w.mu.Lock()
		w.attempts++
		attempts := w.attempts
		w.mu.Unlock()

		if result.err == nil {
			switch result.status {
			case PaymentStatusPaid:
				w.finish(WatcherSuccess, reference)
				return
			case PaymentStatusFailed:
				w.finish(WatcherFailed, reference)
				return
			}
		} else {
			log.Printf("Payment poll %d for %s failed: %v", attempts, reference, result.err)
		}

		if attempts >= w.config.MaxChecks {
			// Budget exhausted. An erroring final attempt means we never
			// learned the status; a clean-but-pending one is a timeout.
			if result.err != nil {
				w.finish(WatcherError, reference)
			} else {
				w.finish(WatcherTimeout, reference)
			}
			return
		}

		time.Sleep(w.config.Interval)
	}
}

func (w *PaymentWatcher) checkOnce(reference string) pollResult {
	endpoint := fmt.Sprintf("%s/api/payment/verify-and-update/%s", w.config.BaseURL, url.PathEscape(reference))

	resp, err := w.httpClient.Get(endpoint)
	if err != nil {
		return pollResult{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pollResult{err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return pollResult{err: fmt.Errorf("verify endpoint returned status %d", resp.StatusCode)}
	}

	var payload struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return pollResult{err: err}
	}
	if payload.PaymentStatus == "" {
		return pollResult{err: fmt.Errorf("verify endpoint returned no payment status")}
	}

	return pollResult{status: payload.PaymentStatus}
}

func (w *PaymentWatcher) finish(outcome WatcherState, reference string) {
	w.mu.Lock()
	w.state = outcome
	done := w.done
	w.mu.Unlock()

	if w.Notify != nil {
		w.Notify(watcherMessages[outcome])
	}

	time.Sleep(w.config.DisplayDelay)

	if w.Redirect != nil {
		w.Redirect(w.OutcomeURL(outcome, reference))
	}

	if done != nil {
		close(done)
	}
}

// OutcomeURL builds the redirect target carrying the outcome and, when
// known, the reference.
func (w *PaymentWatcher) OutcomeURL(outcome WatcherState, reference string) string {
	target := w.config.FrontendURL + "?payment=" + watcherOutcomes[outcome]
	if reference != "" {
		target += "&reference=" + url.QueryEscape(reference)
	}
	return target
}

// DetectFromURL inspects a gateway landing URL for success/failure
// markers. When a reference can be recovered from the query (or from the
// reference this watcher last polled), polling starts; otherwise the
// watcher redirects immediately with the detected outcome.
func (w *PaymentWatcher) DetectFromURL(landingURL string) bool {
	parsed, err := url.Parse(landingURL)
	if err != nil {
		return false
	}

	query := parsed.Query()
	lowerPath := strings.ToLower(parsed.Path)

	failureDetected := strings.Contains(lowerPath, "failure") ||
		query.Get("status") == "Failed" ||
		query.Get("payment") == "failed"
	successDetected := strings.Contains(lowerPath, "success") ||
		query.Get("status") == "Success" ||
		query.Get("payment") == "paid"

	if !failureDetected && !successDetected {
		return false
	}

	reference := query.Get("reference")
	if reference == "" {
		reference = query.Get("ReferenceNo")
	}
	if reference == "" {
		w.mu.Lock()
		reference = w.reference
		w.mu.Unlock()
	}

	if reference != "" {
		// A reference is known, so confirm against the backend rather
		// than trusting the URL marker.
		w.Start(reference)
		return true
	}

	outcome := WatcherFailed
	if successDetected {
		outcome = WatcherSuccess
	}
	if w.Redirect != nil {
		w.Redirect(w.OutcomeURL(outcome, ""))
	}
	return true
}
