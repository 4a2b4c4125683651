// Package livefeed keeps a local view of the active-orders board approximately
// fresh: it polls the orders endpoint on a fixed interval, plays an audio cue
// when previously unseen pending orders show up, and applies user-initiated
// mutations optimistically, reconciling or rolling back against the backend.
package livefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fornalha-pos/api/internal/enum"
	"go.uber.org/zap"
)

const (
	defaultPollInterval   = 4 * time.Second
	defaultReconcileDelay = 300 * time.Millisecond
)

// Errors surfaced by the session.
var (
	ErrMalformedResponse = errors.New("formato de dados inválido: expected a JSON array of orders")
	ErrOrderNotFound     = errors.New("order not present in the feed")
	ErrNotRunning        = errors.New("session is not running")
)

// APIError carries the backend's message for a failed request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Doer issues HTTP requests. Satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier plays the new-order audio cue. Playback failures are logged and
// never retried; a broken speaker must not break the board.
type Notifier interface {
	Play() error
}

// Options configures a Session. Zero values get sensible defaults in New.
type Options struct {
	BaseURL string
	Token   string

	Client   Doer
	Clock    Clock
	Notifier Notifier
	Logger   *zap.Logger

	PollInterval   time.Duration
	ReconcileDelay time.Duration

	// OnChange receives a snapshot of the order list after every visible change.
	OnChange func([]Order)
	// OnError receives refresh failures; the board stays on last-known-good data.
	OnError func(error)
	// Confirm gates Reject. A nil Confirm rejects without prompting.
	Confirm func(Order) bool
}

// Session owns the live-orders view: the polling loop, the seen-id set and any
// in-flight optimistic patches. Construct with New, then either Start/Stop or
// drive Refresh directly.
type Session struct {
	baseURL  string
	token    string
	client   Doer
	clock    Clock
	notifier Notifier
	log      *zap.Logger
	confirm  func(Order) bool

	pollInterval   time.Duration
	reconcileDelay time.Duration

	onChange func([]Order)
	onError  func(error)

	mu         sync.Mutex
	orders     []Order
	seen       map[string]struct{}
	pending    map[string]Order
	refreshing bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Session. It does not start polling.
func New(opts Options) *Session {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = defaultReconcileDelay
	}
	return &Session{
		baseURL:        opts.BaseURL,
		token:          opts.Token,
		client:         opts.Client,
		clock:          opts.Clock,
		notifier:       opts.Notifier,
		log:            opts.Logger,
		confirm:        opts.Confirm,
		pollInterval:   opts.PollInterval,
		reconcileDelay: opts.ReconcileDelay,
		onChange:       opts.OnChange,
		onError:        opts.OnError,
		seen:           make(map[string]struct{}),
		pending:        make(map[string]Order),
	}
}

// Start launches the polling loop in a goroutine. Stop tears it down.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.Run(ctx)
	}()
}

// Stop cancels the polling loop and waits for it to exit.
func (s *Session) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Run polls until ctx is cancelled. The first refresh happens immediately.
func (s *Session) Run(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("initial refresh failed", zap.Error(err))
	}

	ticker := s.clock.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := s.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("refresh failed", zap.Error(err))
			}
		}
	}
}

// Orders returns a snapshot of the current list, optimistic patches included.
func (s *Session) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.orders)
}

// Refresh fetches the active-order list and replaces the local view.
//
// Single-flight: a refresh that arrives while another is outstanding is
// skipped, so a slow response cannot land after a newer one and resurrect
// stale state.
//
// Failure semantics: transport and HTTP errors keep the last-known-good list;
// only a malformed (non-array) body clears it, because at that point the local
// view can no longer be trusted at all.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return nil
	}
	s.refreshing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/orders?active=true", nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		err = fmt.Errorf("fetch orders: %w", err)
		s.surfaceError(err)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("read orders response: %w", err)
		s.surfaceError(err)
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: decodeMessage(body)}
		s.surfaceError(apiErr)
		return apiErr
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		s.clearOrders()
		s.surfaceError(ErrMalformedResponse)
		s.emitChange()
		return ErrMalformedResponse
	}

	var fetched []Order
	if err := json.Unmarshal(trimmed, &fetched); err != nil {
		s.clearOrders()
		s.surfaceError(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		s.emitChange()
		return ErrMalformedResponse
	}
	for i := range fetched {
		fetched[i].normalize()
	}

	novel := s.replaceOrders(fetched)

	// One cue per cycle regardless of how many new orders arrived.
	if novel > 0 && s.notifier != nil {
		if err := s.notifier.Play(); err != nil {
			s.log.Warn("notification sound failed", zap.Error(err))
		}
	}

	s.emitChange()
	return nil
}

// replaceOrders swaps in the fetched list, keeping the local copy of any order
// with an unreconciled optimistic patch. Returns the count of pending orders
// never seen before.
func (s *Session) replaceOrders(fetched []Order) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	novel := 0
	next := make([]Order, 0, len(fetched))
	for _, o := range fetched {
		if o.Status == enum.OrderStatusPending {
			if _, ok := s.seen[o.ID]; !ok {
				novel++
			}
		}
		if patched, ok := s.pending[o.ID]; ok {
			next = append(next, patched)
		} else {
			next = append(next, o)
		}
	}
	for _, o := range fetched {
		s.seen[o.ID] = struct{}{}
	}
	s.orders = next
	return novel
}

func (s *Session) clearOrders() {
	s.mu.Lock()
	s.orders = []Order{}
	s.mu.Unlock()
}

func (s *Session) emitChange() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Orders())
}

func (s *Session) surfaceError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *Session) setHeaders(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("Accept", "application/json")
}

func snapshot(orders []Order) []Order {
	out := make([]Order, len(orders))
	copy(out, orders)
	return out
}

// decodeMessage extracts the backend's error message from a response body.
// Both {"message": ...} and {"error": ...} shapes occur in the contract.
func decodeMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
