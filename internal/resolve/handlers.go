package resolve

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/velmart/backend-store/internal/common"
	"github.com/velmart/backend-store/internal/discount"
	"github.com/velmart/backend-store/internal/obs"
)

// Handler exposes the public resolution endpoints.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

type resolveItemPayload struct {
	LineID    string `json:"lineId"`
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
}

type resolveRequest struct {
	Currency         string               `json:"currency"`
	Items            []resolveItemPayload `json:"items"`
	ShippingMethodID *string              `json:"shippingMethodId"`
	ShippingPrice    int64                `json:"shippingPrice"`
	CouponCodes      []string             `json:"couponCodes"`
}

type validateCouponRequest struct {
	Code string         `json:"code"`
	Cart resolveRequest `json:"cart"`
}

// ResolveCart prices a cart snapshot: active sales plus any supplied coupon
// codes, with per-code rejections reported alongside the result.
func (h *Handler) ResolveCart(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "resolve service not configured", nil)
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	snap, err := toSnapshot(req)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	result, err := h.Svc.ResolveCart(r.Context(), snap, req.CouponCodes, userIDFromContext(r))
	if err != nil {
		recordResolve("cart", "error")
		h.writeResolveError(w, err)
		return
	}
	recordResolve("cart", "ok")
	recordOutcome(result)
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// ResolveOrder re-prices an order snapshot through the same pipeline as
// ResolveCart so the two never disagree.
func (h *Handler) ResolveOrder(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "resolve service not configured", nil)
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	snap, err := toSnapshot(req)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	snap.CouponCodes = req.CouponCodes
	result, err := h.Svc.ResolveOrder(r.Context(), snap, userIDFromContext(r))
	if err != nil {
		recordResolve("order", "error")
		h.writeResolveError(w, err)
		return
	}
	recordResolve("order", "ok")
	recordOutcome(result)
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// ValidateCoupon checks one code ahead of checkout. The cart snapshot is
// optional; without it, cart-dependent conditions see an empty cart.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "resolve service not configured", nil)
		return
	}
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	snap, err := toSnapshot(req.Cart)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	d, err := h.Svc.ValidateCoupon(r.Context(), req.Code, snap, userIDFromContext(r))
	if err != nil {
		switch {
		case errors.Is(err, discount.ErrUnknownCoupon):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
		case errors.Is(err, discount.ErrCouponIneligible):
			common.JSONError(w, http.StatusUnprocessableEntity, "NOT_ELIGIBLE", "coupon conditions not met", nil)
		default:
			h.writeResolveError(w, err)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":   d.ID,
		"code": req.Code,
		"name": d.Name,
	}})
}

func (h *Handler) writeResolveError(w http.ResponseWriter, err error) {
	var unsupported *discount.UnsupportedConditionError
	if errors.As(err, &unsupported) {
		h.Logger.Error().Err(err).Str("tag", unsupported.Tag).Msg("discount configuration rejected")
		common.JSONError(w, http.StatusInternalServerError, "CONFIG", "discount configuration is invalid", nil)
		return
	}
	h.Logger.Error().Err(err).Msg("resolution failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to resolve discounts", nil)
}

func recordResolve(kind, result string) {
	if obs.ResolveTotal != nil {
		obs.ResolveTotal.WithLabelValues(kind, result).Inc()
	}
}

func recordOutcome(res Result) {
	if obs.CouponRejectionsTotal != nil {
		for _, ce := range res.CouponErrors {
			obs.CouponRejectionsTotal.WithLabelValues(ce.Reason).Inc()
		}
	}
	if obs.DiscountsAppliedTotal == nil {
		return
	}
	for _, it := range res.Items {
		for range it.AppliedDiscountIDs {
			obs.DiscountsAppliedTotal.WithLabelValues(string(discount.TargetProducts)).Inc()
		}
	}
	for range res.AppliedOrderDiscountIDs {
		obs.DiscountsAppliedTotal.WithLabelValues(string(discount.TargetOrderValue)).Inc()
	}
	for range res.AppliedShippingDiscountIDs {
		obs.DiscountsAppliedTotal.WithLabelValues(string(discount.TargetShippingPrice)).Inc()
	}
}

func toSnapshot(req resolveRequest) (Snapshot, error) {
	snap := Snapshot{
		Currency:      strings.TrimSpace(req.Currency),
		ShippingPrice: req.ShippingPrice,
	}
	if req.ShippingPrice < 0 {
		return Snapshot{}, errors.New("shippingPrice must not be negative")
	}
	if req.ShippingMethodID != nil && strings.TrimSpace(*req.ShippingMethodID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*req.ShippingMethodID))
		if err != nil {
			return Snapshot{}, errors.New("invalid shippingMethodId")
		}
		snap.ShippingMethodID = &parsed
	}
	for _, it := range req.Items {
		if it.Price < 0 {
			return Snapshot{}, errors.New("item price must not be negative")
		}
		lineID, err := uuid.Parse(strings.TrimSpace(it.LineID))
		if err != nil {
			return Snapshot{}, errors.New("invalid lineId")
		}
		productID, err := uuid.Parse(strings.TrimSpace(it.ProductID))
		if err != nil {
			return Snapshot{}, errors.New("invalid productId")
		}
		qty := it.Qty
		if qty <= 0 {
			qty = 1
		}
		snap.Items = append(snap.Items, ItemInput{
			LineID:    lineID,
			ProductID: productID,
			Qty:       qty,
			Price:     it.Price,
		})
	}
	return snap, nil
}

func userIDFromContext(r *http.Request) *uuid.UUID {
	raw, ok := common.UserID(r.Context())
	if !ok {
		return nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &parsed
}
