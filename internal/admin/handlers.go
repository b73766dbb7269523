package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/velmart/backend-store/internal/common"
	"github.com/velmart/backend-store/internal/discount"
	"github.com/velmart/backend-store/internal/money"
	"github.com/velmart/backend-store/internal/salescache"
)

// Store captures the persistence operations the admin surface needs.
type Store interface {
	ListDiscounts(ctx context.Context, limit, offset int) ([]discount.Discount, error)
	CountDiscounts(ctx context.Context) (int64, error)
	GetDiscount(ctx context.Context, id uuid.UUID) (discount.Discount, error)
	CreateDiscount(ctx context.Context, d discount.Discount) (discount.Discount, error)
	UpdateDiscount(ctx context.Context, d discount.Discount) (discount.Discount, error)
	DeleteDiscount(ctx context.Context, id uuid.UUID) error
}

// Handler exposes administrative discount management endpoints.
type Handler struct {
	Store    Store
	Cache    *salescache.Cache
	Validate *validator.Validate
	Logger   zerolog.Logger
	// Currency backs fixed amounts submitted without one.
	Currency string
}

type discountPayload struct {
	Code                  *string         `json:"code" validate:"omitempty,min=1,max=64"`
	Name                  string          `json:"name" validate:"required,min=1,max=200"`
	Priority              int             `json:"priority"`
	Active                bool            `json:"active"`
	PercentBps            *int64          `json:"percentBps" validate:"omitempty,gt=0,lte=10000"`
	Amount                *int64          `json:"amount" validate:"omitempty,gt=0"`
	Currency              *string         `json:"currency" validate:"omitempty,len=3"`
	Target                string          `json:"target" validate:"required"`
	TargetAllowList       bool            `json:"targetAllowList"`
	TargetProductIDs      []string        `json:"targetProductIds" validate:"omitempty,dive,uuid"`
	TargetSetIDs          []string        `json:"targetSetIds" validate:"omitempty,dive,uuid"`
	TargetShippingMethods []string        `json:"targetShippingMethods" validate:"omitempty,dive,uuid"`
	ConditionGroups       json.RawMessage `json:"conditionGroups"`
	MaxUses               *int64          `json:"maxUses" validate:"omitempty,gt=0"`
}

type discountView struct {
	ID uuid.UUID `json:"id"`
	discountPayload
}

// List returns discount rules with pagination metadata.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	if perPage > 200 {
		perPage = 200
	}
	items, err := h.Store.ListDiscounts(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		h.Logger.Error().Err(err).Msg("list discounts failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list discounts", nil)
		return
	}
	total, err := h.Store.CountDiscounts(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("count discounts failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list discounts", nil)
		return
	}
	views := make([]discountView, 0, len(items))
	for _, d := range items {
		view, err := toView(d)
		if err != nil {
			h.Logger.Error().Err(err).Str("discount_id", d.ID.String()).Msg("render discount failed")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list discounts", nil)
			return
		}
		views = append(views, view)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": views,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns a single rule by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.Store.GetDiscount(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount not found", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("get discount failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load discount", nil)
		return
	}
	view, err := toView(d)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load discount", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Create inserts a new discount rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	d, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.Store.CreateDiscount(r.Context(), d)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "discount code already exists", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("create discount failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create discount", nil)
		return
	}
	h.invalidateCache(r)
	view, err := toView(created)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create discount", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Update replaces an existing rule in full.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, ok := h.decode(w, r)
	if !ok {
		return
	}
	d.ID = id
	updated, err := h.Store.UpdateDiscount(r.Context(), d)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount not found", nil)
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "discount code already exists", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("update discount failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update discount", nil)
		return
	}
	h.invalidateCache(r)
	view, err := toView(updated)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update discount", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Delete removes a rule.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteDiscount(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount not found", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("delete discount failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete discount", nil)
		return
	}
	h.invalidateCache(r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (discount.Discount, bool) {
	var payload discountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return discount.Discount{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "validation failed", err.Error())
			return discount.Discount{}, false
		}
	}
	d, err := h.toDiscount(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return discount.Discount{}, false
	}
	return d, true
}

func (h *Handler) toDiscount(payload discountPayload) (discount.Discount, error) {
	if (payload.PercentBps == nil) == (payload.Amount == nil) {
		return discount.Discount{}, errors.New("exactly one of percentBps and amount is required")
	}
	target := discount.TargetType(strings.TrimSpace(payload.Target))
	if !target.Valid() {
		return discount.Discount{}, errors.New("invalid target")
	}

	var value discount.Value
	if payload.PercentBps != nil {
		value = discount.Percent{Bps: *payload.PercentBps}
	} else {
		currency := h.Currency
		if payload.Currency != nil && strings.TrimSpace(*payload.Currency) != "" {
			currency = *payload.Currency
		}
		value = discount.Fixed{Amount: money.New(*payload.Amount, currency)}
	}

	groups, err := discount.UnmarshalGroups(payload.ConditionGroups)
	if err != nil {
		return discount.Discount{}, err
	}
	productIDs, err := parseUUIDs(payload.TargetProductIDs)
	if err != nil {
		return discount.Discount{}, err
	}
	setIDs, err := parseUUIDs(payload.TargetSetIDs)
	if err != nil {
		return discount.Discount{}, err
	}
	methods, err := parseUUIDs(payload.TargetShippingMethods)
	if err != nil {
		return discount.Discount{}, err
	}

	var code *string
	if payload.Code != nil && strings.TrimSpace(*payload.Code) != "" {
		trimmed := strings.TrimSpace(*payload.Code)
		code = &trimmed
	}

	return discount.Discount{
		Code:                  code,
		Name:                  strings.TrimSpace(payload.Name),
		Priority:              payload.Priority,
		Active:                payload.Active,
		Value:                 value,
		Target:                target,
		TargetAllowList:       payload.TargetAllowList,
		TargetProductIDs:      productIDs,
		TargetSetIDs:          setIDs,
		TargetShippingMethods: methods,
		Groups:                groups,
		MaxUses:               payload.MaxUses,
	}, nil
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// invalidateCache drops the active-sales cache after a write so resolution
// never prices against stale rules for longer than one request.
func (h *Handler) invalidateCache(r *http.Request) {
	if err := h.Cache.Invalidate(r.Context()); err != nil {
		h.Logger.Warn().Err(err).Msg("sales cache invalidation failed")
	}
}

func toView(d discount.Discount) (discountView, error) {
	groups, err := discount.MarshalGroups(d.Groups)
	if err != nil {
		return discountView{}, err
	}
	view := discountView{
		ID: d.ID,
		discountPayload: discountPayload{
			Code:                  d.Code,
			Name:                  d.Name,
			Priority:              d.Priority,
			Active:                d.Active,
			Target:                string(d.Target),
			TargetAllowList:       d.TargetAllowList,
			TargetProductIDs:      formatUUIDs(d.TargetProductIDs),
			TargetSetIDs:          formatUUIDs(d.TargetSetIDs),
			TargetShippingMethods: formatUUIDs(d.TargetShippingMethods),
			ConditionGroups:       groups,
			MaxUses:               d.MaxUses,
		},
	}
	switch v := d.Value.(type) {
	case discount.Percent:
		view.PercentBps = &v.Bps
	case discount.Fixed:
		amount := v.Amount.Amount
		currency := v.Amount.Currency
		view.Amount = &amount
		view.Currency = &currency
	}
	return view, nil
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, errors.New("invalid id " + raw)
		}
		out = append(out, parsed)
	}
	return out, nil
}

func formatUUIDs(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
