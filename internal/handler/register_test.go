package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fornalha-pos/api/internal/auth"
	"github.com/fornalha-pos/api/internal/database"
	"github.com/fornalha-pos/api/internal/middleware"
)

type mockRegisterStore struct {
	getOpenSessionFn   func(ctx context.Context) (database.RegisterSession, error)
	openSessionFn      func(ctx context.Context, arg database.OpenRegisterSessionParams) (database.RegisterSession, error)
	closeSessionFn     func(ctx context.Context, arg database.CloseRegisterSessionParams) (database.RegisterSession, error)
	sumCashOrdersFn    func(ctx context.Context, since time.Time) (pgtype.Numeric, error)
	createMovementFn   func(ctx context.Context, arg database.CreateRegisterMovementParams) (database.RegisterMovement, error)
	listMovementsFn    func(ctx context.Context, sessionID uuid.UUID) ([]database.RegisterMovement, error)
	sumMovementsFn     func(ctx context.Context, sessionID uuid.UUID) (pgtype.Numeric, error)
}

func (m *mockRegisterStore) GetOpenRegisterSession(ctx context.Context) (database.RegisterSession, error) {
	return m.getOpenSessionFn(ctx)
}

func (m *mockRegisterStore) OpenRegisterSession(ctx context.Context, arg database.OpenRegisterSessionParams) (database.RegisterSession, error) {
	return m.openSessionFn(ctx, arg)
}

func (m *mockRegisterStore) CloseRegisterSession(ctx context.Context, arg database.CloseRegisterSessionParams) (database.RegisterSession, error) {
	return m.closeSessionFn(ctx, arg)
}

func (m *mockRegisterStore) SumCashOrdersSince(ctx context.Context, since time.Time) (pgtype.Numeric, error) {
	return m.sumCashOrdersFn(ctx, since)
}

func (m *mockRegisterStore) CreateRegisterMovement(ctx context.Context, arg database.CreateRegisterMovementParams) (database.RegisterMovement, error) {
	return m.createMovementFn(ctx, arg)
}

func (m *mockRegisterStore) ListRegisterMovementsBySession(ctx context.Context, sessionID uuid.UUID) ([]database.RegisterMovement, error) {
	return m.listMovementsFn(ctx, sessionID)
}

func (m *mockRegisterStore) SumMovementsBySession(ctx context.Context, sessionID uuid.UUID) (pgtype.Numeric, error) {
	return m.sumMovementsFn(ctx, sessionID)
}

func authedRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	ctx := middleware.WithClaims(req.Context(), &auth.Claims{UserID: uuid.New(), Role: "ATTENDANT"})
	return req.WithContext(ctx)
}

func openSession(t *testing.T, opening string) database.RegisterSession {
	t.Helper()
	return database.RegisterSession{
		ID:            uuid.New(),
		OpenedBy:      uuid.New(),
		OpeningAmount: testNumeric(t, opening),
		OpenedAt:      time.Now().Add(-4 * time.Hour),
	}
}

func TestCurrentNoOpenSessionIs404(t *testing.T) {
	store := &mockRegisterStore{
		getOpenSessionFn: func(_ context.Context) (database.RegisterSession, error) {
			return database.RegisterSession{}, pgx.ErrNoRows
		},
	}
	h := NewRegisterHandler(store)

	rec := httptest.NewRecorder()
	h.Current(rec, httptest.NewRequest(http.MethodGet, "/register/current", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCurrentComputesExpectedAmount(t *testing.T) {
	session := openSession(t, "100.00")
	store := &mockRegisterStore{
		getOpenSessionFn: func(_ context.Context) (database.RegisterSession, error) {
			return session, nil
		},
		sumCashOrdersFn: func(_ context.Context, since time.Time) (pgtype.Numeric, error) {
			if !since.Equal(session.OpenedAt) {
				t.Errorf("cash sum since %v, want %v", since, session.OpenedAt)
			}
			return testNumeric(t, "250.50"), nil
		},
		sumMovementsFn: func(_ context.Context, _ uuid.UUID) (pgtype.Numeric, error) {
			// one 50.00 supply, one 30.00 withdrawal
			return testNumeric(t, "20.00"), nil
		},
	}
	h := NewRegisterHandler(store)

	rec := httptest.NewRecorder()
	h.Current(rec, httptest.NewRequest(http.MethodGet, "/register/current", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp registerSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ExpectedAmount == nil || *resp.ExpectedAmount != "370.50" {
		t.Fatalf("expected_amount = %v, want 370.50", resp.ExpectedAmount)
	}
}

func TestOpenRegister(t *testing.T) {
	var got database.OpenRegisterSessionParams
	store := &mockRegisterStore{
		openSessionFn: func(_ context.Context, arg database.OpenRegisterSessionParams) (database.RegisterSession, error) {
			got = arg
			return database.RegisterSession{ID: uuid.New(), OpenedBy: arg.OpenedBy, OpeningAmount: arg.OpeningAmount, OpenedAt: time.Now()}, nil
		},
	}
	h := NewRegisterHandler(store)

	rec := httptest.NewRecorder()
	h.Open(rec, authedRequest(t, http.MethodPost, "/register/open", map[string]string{"opening_amount": "150.00"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if numericString(got.OpeningAmount) != "150.00" {
		t.Errorf("opening amount = %s", numericString(got.OpeningAmount))
	}
}

func TestOpenRegisterAlreadyOpenIs409(t *testing.T) {
	store := &mockRegisterStore{
		openSessionFn: func(_ context.Context, _ database.OpenRegisterSessionParams) (database.RegisterSession, error) {
			return database.RegisterSession{}, &pgconn.PgError{Code: "23505", ConstraintName: "register_sessions_one_open"}
		},
	}
	h := NewRegisterHandler(store)

	rec := httptest.NewRecorder()
	h.Open(rec, authedRequest(t, http.MethodPost, "/register/open", map[string]string{"opening_amount": "100.00"}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestOpenRegisterRejectsNegativeAmount(t *testing.T) {
	h := NewRegisterHandler(&mockRegisterStore{})

	rec := httptest.NewRecorder()
	h.Open(rec, authedRequest(t, http.MethodPost, "/register/open", map[string]string{"opening_amount": "-5.00"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCloseRegisterSettlesDifference(t *testing.T) {
	session := openSession(t, "100.00")
	var got database.CloseRegisterSessionParams
	store := &mockRegisterStore{
		getOpenSessionFn: func(_ context.Context) (database.RegisterSession, error) {
			return session, nil
		},
		sumCashOrdersFn: func(_ context.Context, _ time.Time) (pgtype.Numeric, error) {
			return testNumeric(t, "300.00"), nil
		},
		sumMovementsFn: func(_ context.Context, _ uuid.UUID) (pgtype.Numeric, error) {
			return testNumeric(t, "-50.00"), nil
		},
		closeSessionFn: func(_ context.Context, arg database.CloseRegisterSessionParams) (database.RegisterSession, error) {
			got = arg
			closed := session
			closed.ClosedBy = arg.ClosedBy
			closed.CountedAmount = arg.CountedAmount
			closed.ExpectedAmount = arg.ExpectedAmount
			closed.Difference = arg.Difference
			closed.ClosedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			return closed, nil
		},
	}
	h := NewRegisterHandler(store)

	rec := httptest.NewRecorder()
	h.Close(rec, authedRequest(t, http.MethodPost, "/register/close", map[string]string{"counted_amount": "340.00"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	// expected = 100 + 300 - 50 = 350; difference = 340 - 350 = -10
	if numericString(got.ExpectedAmount) != "350.00" {
		t.Errorf("expected amount = %s, want 350.00", numericString(got.ExpectedAmount))
	}
	if numericString(got.Difference) != "-10.00" {
		t.Errorf("difference = %s, want -10.00", numericString(got.Difference))
	}
}

func TestCloseRegisterNoSessionIs409(t *testing.T) {
	store := &mockRegisterStore{
		getOpenSessionFn: func(_ context.Context) (database.RegisterSession, error) {
			return database.RegisterSession{}, pgx.ErrNoRows
		},
	}
	h := NewRegisterHandler(store)

	rec := httptest.NewRecorder()
	h.Close(rec, authedRequest(t, http.MethodPost, "/register/close", map[string]string{"counted_amount": "100.00"}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCreateMovementRejectsBadType(t *testing.T) {
	h := NewRegisterHandler(&mockRegisterStore{})

	rec := httptest.NewRecorder()
	h.CreateMovement(rec, authedRequest(t, http.MethodPost, "/register/movements",
		map[string]string{"movement_type": "LOAN", "amount": "10.00"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateMovementNoOpenSessionIs409(t *testing.T) {
	store := &mockRegisterStore{
		getOpenSessionFn: func(_ context.Context) (database.RegisterSession, error) {
			return database.RegisterSession{}, pgx.ErrNoRows
		},
	}
	h := NewRegisterHandler(store)

	rec := httptest.NewRecorder()
	h.CreateMovement(rec, authedRequest(t, http.MethodPost, "/register/movements",
		map[string]string{"movement_type": "WITHDRAWAL", "amount": "25.00", "reason": "troco"}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCreateMovement(t *testing.T) {
	session := openSession(t, "100.00")
	var got database.CreateRegisterMovementParams
	store := &mockRegisterStore{
		getOpenSessionFn: func(_ context.Context) (database.RegisterSession, error) {
			return session, nil
		},
		createMovementFn: func(_ context.Context, arg database.CreateRegisterMovementParams) (database.RegisterMovement, error) {
			got = arg
			return database.RegisterMovement{
				ID:           uuid.New(),
				SessionID:    arg.SessionID,
				MovementType: arg.MovementType,
				Amount:       arg.Amount,
				Reason:       arg.Reason,
				CreatedBy:    arg.CreatedBy,
				CreatedAt:    time.Now(),
			}, nil
		},
	}
	h := NewRegisterHandler(store)

	rec := httptest.NewRecorder()
	h.CreateMovement(rec, authedRequest(t, http.MethodPost, "/register/movements",
		map[string]string{"movement_type": "SUPPLY", "amount": "80.00", "reason": "fundo de troco"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if got.SessionID != session.ID || got.MovementType != "SUPPLY" {
		t.Errorf("params = %+v", got)
	}
	if !got.Reason.Valid || got.Reason.String != "fundo de troco" {
		t.Errorf("reason = %+v", got.Reason)
	}
}
