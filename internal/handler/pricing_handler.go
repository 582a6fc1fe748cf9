package handler

import (
	"net/http"

	"admin-console/internal/pricing"
)

// pricingRequest is a price form plus the field the admin just edited.
// An empty Changed recomputes unconditionally.
type pricingRequest struct {
	pricing.Form
	Changed pricing.Field `json:"changed"`
}

func (h *AdminHandler) PreviewFinalPrice(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err, "Invalid request body")
		return
	}
	if req.Changed == "" {
		req.Changed = pricing.FieldBasePrice
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(pricing.ApplyForward(req.Form, req.Changed), ""))
}

func (h *AdminHandler) PreviewDiscountPercent(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err, "Invalid request body")
		return
	}
	if req.Changed == "" {
		req.Changed = pricing.FieldFinalPrice
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(pricing.ApplyInverse(req.Form, req.Changed), ""))
}
