package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/messaging"
	pkgredis "github.com/brewops/brewops-backend/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestError_RendersAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("receive: %w", errors.OverReceipt("only 20 remaining")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, errors.CodeOverReceipt, resp.Error.Code)
	assert.Equal(t, "only 20 remaining", resp.Error.Message)
}

func TestError_HidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, errors.CodeInternal, resp.Error.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestList_EmptySliceNotNull(t *testing.T) {
	rec := httptest.NewRecorder()
	List[string](rec, nil)
	assert.JSONEq(t, `{"success":true,"data":[],"meta":{"total":0}}`, rec.Body.String())
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query     string
		page, per int
	}{
		{"", 1, DefaultPerPage},
		{"page=3&per_page=50", 3, 50},
		{"page=0&per_page=0", 1, DefaultPerPage},
		{"page=-2&per_page=500", 1, DefaultPerPage},
		{"page=two&per_page=ten", 1, DefaultPerPage},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/movements?"+tt.query, nil)
			page, per := PageParams(r)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.per, per)
		})
	}
}

func TestPaginated_WritesPageMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []string{"B-2026-041", "B-2026-040"}, 2, 2, 5)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"success":true,"data":["B-2026-041","B-2026-040"],"meta":{"page":2,"per_page":2,"total":5,"total_pages":3}}`,
		rec.Body.String())

	rec = httptest.NewRecorder()
	Paginated[string](rec, nil, 1, DefaultPerPage, 0)
	assert.JSONEq(t, `{"success":true,"data":[],"meta":{"page":1,"per_page":20,"total":0}}`, rec.Body.String())
}

type receiveRequest struct {
	Quantity  decimal.Decimal     `json:"quantity" validate:"gt=0"`
	Gravity   decimal.NullDecimal `json:"gravity" validate:"omitempty,gte=0.99,lte=1.2"`
	LotNumber string              `json:"lot_number" validate:"required,max=64"`
}

func TestValidate_DecimalTags(t *testing.T) {
	ok := receiveRequest{Quantity: decimal.RequireFromString("2.5"), LotNumber: "LOT-1"}
	assert.NoError(t, Validate(ok))

	bad := receiveRequest{Quantity: decimal.Zero}
	err := Validate(bad)
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "must be greater than 0", appErr.Details["Quantity"])
	assert.Equal(t, "this field is required", appErr.Details["LotNumber"])

	outOfRange := receiveRequest{
		Quantity:  decimal.NewFromInt(1),
		LotNumber: "LOT-1",
		Gravity:   decimal.NewNullDecimal(decimal.RequireFromString("1.5")),
	}
	assert.Error(t, Validate(outOfRange))
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lot_number":"A","colour":"red"}`))
	var body receiveRequest
	err := DecodeJSON(req, &body)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestRequestID_SetsCorrelationID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = messaging.CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-7", seen)
	assert.Equal(t, "req-7", rec.Header().Get("X-Request-ID"))
}

func TestRecoverer_ReturnsJSON500(t *testing.T) {
	h := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errors.CodeInternal, decodeResponse(t, rec).Error.Code)
}

type fakeStore struct {
	data map[string]string
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", pkgredis.ErrNil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := &fakeStore{data: map[string]string{}}
	calls := 0
	h := Idempotency(store, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.Copy(io.Discard, r.Body)
		Created(w, map[string]int{"call": calls})
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders/lines/l1/receive", strings.NewReader(body))
		req.Header.Set(IdempotencyHeader, "key-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"quantity":"30"}`)
	second := send(`{"quantity":"30"}`)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))

	conflict := send(`{"quantity":"25"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_PassThroughWithoutKeyOrOnFailure(t *testing.T) {
	store := &fakeStore{data: map[string]string{}}
	calls := 0
	h := Idempotency(store, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		Error(w, errors.InvalidState("closed"))
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 4, calls)
	assert.Empty(t, store.data)

	nilStore := Idempotency(nil, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(IdempotencyHeader, "k")
	nilStore.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 5, calls)
}
