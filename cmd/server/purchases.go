package main

import (
	"net/http"
	"time"

	"github.com/Simplici0/sims/internal/httpx"
	"github.com/Simplici0/sims/internal/inventory"
	"github.com/Simplici0/sims/internal/store"
)

type purchaseResponse struct {
	ID         int64             `json:"id"`
	FilamentID int64             `json:"filament_id"`
	Filament   *filamentResponse `json:"filament,omitempty"`
	Quantity   int               `json:"quantity"`
	Notes      string            `json:"notes,omitempty"`
	Ordered    bool              `json:"ordered"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func toPurchaseResponse(item inventory.PurchaseListItem) purchaseResponse {
	out := purchaseResponse{
		ID:         item.ID,
		FilamentID: item.FilamentID,
		Quantity:   item.Quantity,
		Notes:      item.Notes,
		Ordered:    item.Ordered,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
	if item.Filament != nil {
		f := toFilamentResponse(*item.Filament)
		out.Filament = &f
	}
	return out
}

func toPurchasesResponse(items []inventory.PurchaseListItem) []purchaseResponse {
	out := make([]purchaseResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toPurchaseResponse(item))
	}
	return out
}

type createPurchaseRequest struct {
	FilamentID int64  `json:"filament_id" validate:"required,gt=0"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
	Notes      string `json:"notes"`
	Ordered    bool   `json:"ordered"`
}

type updatePurchaseRequest struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gte=0"`
	Notes    *string `json:"notes"`
	Ordered  *bool   `json:"ordered"`
}

func (s *server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListPurchases(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPurchasesResponse(items))
}

func (s *server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	item, err := s.store.GetPurchase(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPurchaseResponse(item))
}

func (s *server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	item, err := s.store.CreatePurchase(r.Context(), inventory.PurchaseListItem{
		FilamentID: req.FilamentID,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
		Ordered:    req.Ordered,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPurchaseResponse(item))
}

func (s *server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req updatePurchaseRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	item, err := s.store.UpdatePurchase(r.Context(), id, store.PurchasePatch{
		Quantity: req.Quantity,
		Notes:    req.Notes,
		Ordered:  req.Ordered,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPurchaseResponse(item))
}

func (s *server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.DeletePurchase(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// handleAddReorderSuggestions puts every low-stock filament on the purchase list
// unless it already has an open entry, and returns the entries it added.
func (s *server) handleAddReorderSuggestions(w http.ResponseWriter, r *http.Request) {
	added, err := s.store.AddLowStockPurchases(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(added) > 0 {
		s.log.Info().Int("added", len(added)).Msg("low-stock filaments added to purchase list")
	}
	httpx.JSON(w, http.StatusOK, toPurchasesResponse(added))
}
