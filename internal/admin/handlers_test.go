package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/velmart/backend-store/internal/discount"
	"github.com/velmart/backend-store/internal/money"
)

func moneyPLN(amount int64) money.Money {
	return money.New(amount, "PLN")
}

type stubStore struct {
	byID    map[uuid.UUID]discount.Discount
	created []discount.Discount
	fail    error
}

func (s *stubStore) ListDiscounts(_ context.Context, limit, offset int) ([]discount.Discount, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]discount.Discount, 0, len(s.byID))
	for _, d := range s.byID {
		out = append(out, d)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) CountDiscounts(context.Context) (int64, error) {
	return int64(len(s.byID)), s.fail
}

func (s *stubStore) GetDiscount(_ context.Context, id uuid.UUID) (discount.Discount, error) {
	d, ok := s.byID[id]
	if !ok {
		return discount.Discount{}, pgx.ErrNoRows
	}
	return d, nil
}

func (s *stubStore) CreateDiscount(_ context.Context, d discount.Discount) (discount.Discount, error) {
	if s.fail != nil {
		return discount.Discount{}, s.fail
	}
	d.ID = uuid.New()
	if s.byID == nil {
		s.byID = map[uuid.UUID]discount.Discount{}
	}
	s.byID[d.ID] = d
	s.created = append(s.created, d)
	return d, nil
}

func (s *stubStore) UpdateDiscount(_ context.Context, d discount.Discount) (discount.Discount, error) {
	if _, ok := s.byID[d.ID]; !ok {
		return discount.Discount{}, pgx.ErrNoRows
	}
	s.byID[d.ID] = d
	return d, nil
}

func (s *stubStore) DeleteDiscount(_ context.Context, id uuid.UUID) error {
	if _, ok := s.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.byID, id)
	return nil
}

func newRouter(store *stubStore) *chi.Mux {
	h := &Handler{Store: store, Validate: validator.New(), Currency: "PLN"}
	r := chi.NewRouter()
	r.Route("/api/v1/admin/discounts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

func TestCreateDiscount(t *testing.T) {
	store := &stubStore{}
	router := newRouter(store)

	body := `{
		"name": "Spring sale",
		"active": true,
		"percentBps": 2000,
		"target": "products",
		"conditionGroups": [{"conditions":[{"type":"cart_length","min":1}]}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/discounts/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	require.Equal(t, discount.TargetProducts, store.created[0].Target)
	require.Equal(t, discount.Percent{Bps: 2000}, store.created[0].Value)
	require.Len(t, store.created[0].Groups, 1)
}

func TestCreateDiscountValidation(t *testing.T) {
	router := newRouter(&stubStore{})

	cases := map[string]string{
		"missing name":       `{"percentBps":1000,"target":"products"}`,
		"both values":        `{"name":"x","percentBps":1000,"amount":500,"target":"products"}`,
		"neither value":      `{"name":"x","target":"products"}`,
		"bad target":         `{"name":"x","percentBps":1000,"target":"everything"}`,
		"unknown condition":  `{"name":"x","percentBps":1000,"target":"products","conditionGroups":[{"conditions":[{"type":"moon_phase"}]}]}`,
		"percent over limit": `{"name":"x","percentBps":10001,"target":"products"}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/discounts/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestCreateDiscountDuplicateCode(t *testing.T) {
	store := &stubStore{fail: &pgconn.PgError{Code: "23505"}}
	router := newRouter(store)

	body := `{"name":"x","code":"SPRING","percentBps":1000,"target":"order_value"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/discounts/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetUpdateDeleteDiscount(t *testing.T) {
	id := uuid.New()
	store := &stubStore{byID: map[uuid.UUID]discount.Discount{id: {
		ID:     id,
		Name:   "Old name",
		Value:  discount.Percent{Bps: 500},
		Target: discount.TargetOrderValue,
	}}}
	router := newRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/discounts/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"name":"New name","percentBps":750,"target":"order_value","active":true}`
	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/discounts/"+id.String(), strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "New name", store.byID[id].Name)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/discounts/"+id.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, store.byID)

	// Gone now.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/discounts/"+id.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDiscounts(t *testing.T) {
	id := uuid.New()
	store := &stubStore{byID: map[uuid.UUID]discount.Discount{id: {
		ID:     id,
		Name:   "Sale",
		Value:  discount.Fixed{Amount: moneyPLN(500)},
		Target: discount.TargetShippingPrice,
	}}}
	router := newRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/discounts/?page=1&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []discountView `json:"data"`
		Pagination struct {
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, 1, resp.Pagination.TotalItems)
	require.NotNil(t, resp.Data[0].Amount)
	require.Equal(t, int64(500), *resp.Data[0].Amount)
}
