package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Simplici0/sims/internal/colormatch"
	"github.com/Simplici0/sims/internal/httpx"
	"github.com/Simplici0/sims/internal/inventory"
	"github.com/Simplici0/sims/internal/store"
)

type filamentResponse struct {
	ID                      int64     `json:"id"`
	Name                    string    `json:"name"`
	Material                string    `json:"material"`
	Color                   string    `json:"color"`
	Color2                  string    `json:"color2,omitempty"`
	Color3                  string    `json:"color3,omitempty"`
	Quantity                int       `json:"quantity"`
	MinimumQuantity         int       `json:"minimum_quantity"`
	MinimumQuantityOverride *int      `json:"minimum_quantity_override"`
	EffectiveMinimum        int       `json:"effective_minimum"`
	BelowThreshold          bool      `json:"below_threshold"`
	Manufacturer            string    `json:"manufacturer,omitempty"`
	Cost                    *float64  `json:"cost"`
	Notes                   string    `json:"notes,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func toFilamentResponse(f inventory.Filament) filamentResponse {
	return filamentResponse{
		ID:                      f.ID,
		Name:                    f.Name,
		Material:                string(f.Material),
		Color:                   f.Color,
		Color2:                  f.Color2,
		Color3:                  f.Color3,
		Quantity:                f.Quantity,
		MinimumQuantity:         f.MinimumQuantity,
		MinimumQuantityOverride: f.MinimumQuantityOverride,
		EffectiveMinimum:        f.EffectiveMinimum(),
		BelowThreshold:          f.BelowThreshold(),
		Manufacturer:            f.Manufacturer,
		Cost:                    f.Cost,
		Notes:                   f.Notes,
		CreatedAt:               f.CreatedAt,
		UpdatedAt:               f.UpdatedAt,
	}
}

type createFilamentRequest struct {
	Name                    string   `json:"name" validate:"required"`
	Material                string   `json:"material" validate:"required,material"`
	Color                   string   `json:"color" validate:"required,rgbhex"`
	Color2                  string   `json:"color2" validate:"omitempty,rgbhex"`
	Color3                  string   `json:"color3" validate:"omitempty,rgbhex"`
	Quantity                int      `json:"quantity" validate:"gte=0"`
	MinimumQuantity         int      `json:"minimum_quantity" validate:"gte=0"`
	MinimumQuantityOverride *int     `json:"minimum_quantity_override" validate:"omitempty,gte=0"`
	Manufacturer            string   `json:"manufacturer"`
	Cost                    *float64 `json:"cost" validate:"omitempty,gte=0"`
	Notes                   string   `json:"notes"`
}

// updateFilamentRequest is a partial update. An explicit null clears
// minimum_quantity_override (back to automatic) or cost (back to the spool price).
type updateFilamentRequest struct {
	Name                    *string           `json:"name" validate:"omitempty,min=1"`
	Material                *string           `json:"material" validate:"omitempty,material"`
	Color                   *string           `json:"color" validate:"omitempty,rgbhex"`
	Color2                  *string           `json:"color2" validate:"omitempty,rgbhex|eq="`
	Color3                  *string           `json:"color3" validate:"omitempty,rgbhex|eq="`
	Quantity                *int              `json:"quantity" validate:"omitempty,gte=0"`
	MinimumQuantity         *int              `json:"minimum_quantity" validate:"omitempty,gte=0"`
	MinimumQuantityOverride nullable[int]     `json:"minimum_quantity_override"`
	Manufacturer            *string           `json:"manufacturer"`
	Cost                    nullable[float64] `json:"cost"`
	Notes                   *string           `json:"notes"`
}

func (req updateFilamentRequest) patch() (store.FilamentPatch, error) {
	p := store.FilamentPatch{
		Name:            req.Name,
		Color:           req.Color,
		Color2:          req.Color2,
		Color3:          req.Color3,
		Quantity:        req.Quantity,
		MinimumQuantity: req.MinimumQuantity,
		Manufacturer:    req.Manufacturer,
		Notes:           req.Notes,
	}
	if req.Material != nil {
		m := inventory.Material(*req.Material)
		p.Material = &m
	}
	if o := req.MinimumQuantityOverride; o.Set {
		if o.Null {
			p.ClearMinimumOverride = true
		} else if o.Value < 0 {
			return store.FilamentPatch{}, fmt.Errorf("%w: minimum_quantity_override must be greater than or equal to 0", store.ErrValidation)
		} else {
			p.MinimumQuantityOverride = &o.Value
		}
	}
	if c := req.Cost; c.Set {
		if c.Null {
			p.ClearCost = true
		} else if c.Value < 0 {
			return store.FilamentPatch{}, fmt.Errorf("%w: cost must be greater than or equal to 0", store.ErrValidation)
		} else {
			p.Cost = &c.Value
		}
	}
	return p, nil
}

type adjustRequest struct {
	Delta int `json:"delta" validate:"required,min=-1000000,max=1000000"`
}

// handleListFilaments supports ?low_stock=1 and ?color=<hex>&threshold=<percent>.
func (s *server) handleListFilaments(w http.ResponseWriter, r *http.Request) {
	filaments, err := s.store.ListFilaments(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.metrics.SetLowStock("filament", len(inventory.LowStockFilaments(filaments)))

	if queryFlag(r, "low_stock") {
		filaments = inventory.LowStockFilaments(filaments)
	}

	if raw := r.URL.Query().Get("color"); raw != "" {
		target, err := colormatch.ParseHex(raw)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrBadRequest, err))
			return
		}
		threshold := colormatch.DefaultThreshold
		if rawThreshold := r.URL.Query().Get("threshold"); rawThreshold != "" {
			threshold, err = parsePercent(rawThreshold, "threshold")
			if err != nil {
				s.respondError(w, r, err)
				return
			}
		}
		matched := make([]inventory.Filament, 0, len(filaments))
		for _, f := range filaments {
			if colormatch.Matches(f.Colors(), target, threshold) {
				matched = append(matched, f)
			}
		}
		filaments = matched
	}

	out := make([]filamentResponse, 0, len(filaments))
	for _, f := range filaments {
		out = append(out, toFilamentResponse(f))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (s *server) handleGetFilament(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	f, err := s.store.GetFilament(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toFilamentResponse(f))
}

func (s *server) handleCreateFilament(w http.ResponseWriter, r *http.Request) {
	var req createFilamentRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	f, err := s.store.CreateFilament(r.Context(), inventory.Filament{
		Name:                    req.Name,
		Material:                inventory.Material(req.Material),
		Color:                   req.Color,
		Color2:                  req.Color2,
		Color3:                  req.Color3,
		Quantity:                req.Quantity,
		MinimumQuantity:         req.MinimumQuantity,
		MinimumQuantityOverride: req.MinimumQuantityOverride,
		Manufacturer:            req.Manufacturer,
		Cost:                    req.Cost,
		Notes:                   req.Notes,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toFilamentResponse(f))
}

func (s *server) handleUpdateFilament(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req updateFilamentRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	f, err := s.store.UpdateFilament(r.Context(), id, patch)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toFilamentResponse(f))
}

func (s *server) handleDeleteFilament(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.DeleteFilament(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (s *server) handleAdjustFilament(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req adjustRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	f, err := s.store.AdjustFilamentQuantity(r.Context(), id, req.Delta)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toFilamentResponse(f))
}

func (s *server) handleResetMinimumOverride(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	f, err := s.store.ResetFilamentMinimumOverride(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toFilamentResponse(f))
}

func (s *server) handleManufacturers(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.Manufacturers(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, names)
}
