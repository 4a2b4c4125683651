package livefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fornalha-pos/api/internal/enum"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Accept confirms a pending order: local status flips to CONFIRMED immediately,
// the backend call follows, and a failed call restores the previous state.
func (s *Session) Accept(ctx context.Context, orderID string) error {
	return s.execute(ctx, orderID,
		func(o *Order) { o.Status = enum.OrderStatusConfirmed },
		func(ctx context.Context) error {
			return s.postAck(ctx, "/orders/"+orderID+"/accept", nil)
		},
	)
}

// Reject cancels an order. The confirm gate runs before anything else: no
// optimistic write and no network call happen unless it returns affirmative.
func (s *Session) Reject(ctx context.Context, orderID string) error {
	if s.confirm != nil {
		order, ok := s.find(orderID)
		if !ok {
			return ErrOrderNotFound
		}
		if !s.confirm(order) {
			return nil
		}
	}
	return s.execute(ctx, orderID,
		func(o *Order) { o.Status = enum.OrderStatusCancelled },
		func(ctx context.Context) error {
			return s.postAck(ctx, "/orders/"+orderID+"/reject", nil)
		},
	)
}

// UpdateStatus moves an order to a new lifecycle state. Setting the status it
// already has is a no-op: no state change, no network call.
func (s *Session) UpdateStatus(ctx context.Context, orderID, status string) error {
	if !enum.IsValidOrderStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	current, ok := s.find(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	if current.Status == status {
		return nil
	}
	return s.execute(ctx, orderID,
		func(o *Order) { o.Status = status },
		func(ctx context.Context) error {
			return s.put(ctx, "/orders/"+orderID, map[string]string{"status": status})
		},
	)
}

// AssignCourier sets the courier independently of status.
func (s *Session) AssignCourier(ctx context.Context, orderID, name string) error {
	return s.execute(ctx, orderID,
		func(o *Order) { o.Courier = &name },
		func(ctx context.Context) error {
			return s.put(ctx, "/orders/"+orderID, map[string]string{"courier": name})
		},
	)
}

// Print requests a receipt for the order. Side effect only; no local mutation.
func (s *Session) Print(ctx context.Context, orderID, printType string) error {
	return s.postAck(ctx, "/print", map[string]string{
		"order_id":   orderID,
		"print_type": printType,
	})
}

// SendCustomerMessage asks the chat channel to message the order's customer.
// Side effect only; no local mutation.
func (s *Session) SendCustomerMessage(ctx context.Context, orderID, trigger string) error {
	order, ok := s.find(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	return s.postAck(ctx, "/chatbot/send", map[string]string{
		"order_id": orderID,
		"phone":    order.CustomerPhone,
		"trigger":  trigger,
	})
}

// execute is the one optimistic-command path shared by every mutating action:
// snapshot, patch locally, call the backend, then either schedule a reconcile
// refresh or restore the snapshot. Actions differ only in patch and call.
func (s *Session) execute(ctx context.Context, orderID string, patch func(*Order), call func(context.Context) error) error {
	s.mu.Lock()
	idx := s.indexOf(orderID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrOrderNotFound
	}
	prev := s.orders[idx]
	next := prev
	patch(&next)
	s.orders[idx] = next
	s.pending[orderID] = next
	s.mu.Unlock()
	s.emitChange()

	if err := call(ctx); err != nil {
		s.mu.Lock()
		delete(s.pending, orderID)
		if i := s.indexOf(orderID); i >= 0 {
			s.orders[i] = prev
		}
		s.mu.Unlock()
		s.emitChange()
		return err
	}

	s.scheduleReconcile(ctx, orderID)
	return nil
}

// scheduleReconcile drops the optimistic patch and re-fetches shortly after a
// successful mutation, so the board converges on the backend's view.
func (s *Session) scheduleReconcile(ctx context.Context, orderID string) {
	go func() {
		select {
		case <-s.clock.After(s.reconcileDelay):
		case <-ctx.Done():
		}
		s.mu.Lock()
		delete(s.pending, orderID)
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := s.Refresh(ctx); err != nil {
			s.log.Warn("reconcile refresh failed", zap.Error(err))
		}
	}()
}

// indexOf must be called with s.mu held.
func (s *Session) indexOf(orderID string) int {
	for i := range s.orders {
		if s.orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

func (s *Session) find(orderID string) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(orderID); i >= 0 {
		return s.orders[i], true
	}
	return Order{}, false
}

// --- HTTP helpers ---

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// postAck issues a POST and expects the {success, message} acknowledgment shape.
func (s *Session) postAck(ctx context.Context, path string, body any) error {
	status, respBody, err := s.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &APIError{StatusCode: status, Message: decodeMessage(respBody)}
	}
	var ack ackResponse
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return fmt.Errorf("decode ack: %w", err)
	}
	if !ack.Success {
		return &APIError{StatusCode: status, Message: ack.Message}
	}
	return nil
}

// put issues a PUT; any non-2xx is an APIError carrying the backend's message.
func (s *Session) put(ctx context.Context, path string, body any) error {
	status, respBody, err := s.do(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &APIError{StatusCode: status, Message: decodeMessage(respBody)}
	}
	return nil
}

// do sends one request with auth and a fresh idempotency key, returning the
// status code and raw body. The key lets the backend drop duplicate clicks.
func (s *Session) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
