package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Simplici0/sims/internal/httpx"
	"github.com/Simplici0/sims/internal/inventory"
	"github.com/Simplici0/sims/internal/store"
)

type printerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPrinterResponse(p inventory.Printer) printerResponse {
	return printerResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

type partResponse struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Quantity        int               `json:"quantity"`
	MinimumQuantity int               `json:"minimum_quantity"`
	BelowThreshold  bool              `json:"below_threshold"`
	Supplier        string            `json:"supplier,omitempty"`
	PartNumber      string            `json:"part_number,omitempty"`
	Price           *float64          `json:"price"`
	Notes           string            `json:"notes,omitempty"`
	Printers        []printerResponse `json:"printers"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toPartResponse(p inventory.Part) partResponse {
	printers := make([]printerResponse, 0, len(p.Printers))
	for _, printer := range p.Printers {
		printers = append(printers, toPrinterResponse(printer))
	}
	return partResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Quantity:        p.Quantity,
		MinimumQuantity: p.MinimumQuantity,
		BelowThreshold:  p.BelowThreshold(),
		Supplier:        p.Supplier,
		PartNumber:      p.PartNumber,
		Price:           p.Price,
		Notes:           p.Notes,
		Printers:        printers,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

type createPartRequest struct {
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description"`
	Quantity        int      `json:"quantity" validate:"gte=0"`
	MinimumQuantity int      `json:"minimum_quantity" validate:"gte=0"`
	Supplier        string   `json:"supplier"`
	PartNumber      string   `json:"part_number"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0"`
	Notes           string   `json:"notes"`
	PrinterIDs      []int64  `json:"printer_ids" validate:"dive,gt=0"`
}

type updatePartRequest struct {
	Name            *string           `json:"name" validate:"omitempty,min=1"`
	Description     *string           `json:"description"`
	Quantity        *int              `json:"quantity" validate:"omitempty,gte=0"`
	MinimumQuantity *int              `json:"minimum_quantity" validate:"omitempty,gte=0"`
	Supplier        *string           `json:"supplier"`
	PartNumber      *string           `json:"part_number"`
	Price           nullable[float64] `json:"price"`
	Notes           *string           `json:"notes"`
	PrinterIDs      *[]int64          `json:"printer_ids"`
}

func (req updatePartRequest) patch() (store.PartPatch, error) {
	p := store.PartPatch{
		Name:            req.Name,
		Description:     req.Description,
		Quantity:        req.Quantity,
		MinimumQuantity: req.MinimumQuantity,
		Supplier:        req.Supplier,
		PartNumber:      req.PartNumber,
		Notes:           req.Notes,
		PrinterIDs:      req.PrinterIDs,
	}
	if price := req.Price; price.Set {
		if price.Null {
			p.ClearPrice = true
		} else if price.Value < 0 {
			return store.PartPatch{}, fmt.Errorf("%w: price must be greater than or equal to 0", store.ErrValidation)
		} else {
			p.Price = &price.Value
		}
	}
	return p, nil
}

func (s *server) handleListParts(w http.ResponseWriter, r *http.Request) {
	parts, err := s.store.ListParts(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	low := inventory.LowStockParts(parts)
	s.metrics.SetLowStock("part", len(low))
	if queryFlag(r, "low_stock") {
		parts = low
	}

	out := make([]partResponse, 0, len(parts))
	for _, p := range parts {
		out = append(out, toPartResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (s *server) handleGetPart(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.GetPart(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPartResponse(p))
}

func (s *server) handleCreatePart(w http.ResponseWriter, r *http.Request) {
	var req createPartRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	p, err := s.store.CreatePart(r.Context(), inventory.Part{
		Name:            req.Name,
		Description:     req.Description,
		Quantity:        req.Quantity,
		MinimumQuantity: req.MinimumQuantity,
		Supplier:        req.Supplier,
		PartNumber:      req.PartNumber,
		Price:           req.Price,
		Notes:           req.Notes,
	}, req.PrinterIDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPartResponse(p))
}

func (s *server) handleUpdatePart(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req updatePartRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	p, err := s.store.UpdatePart(r.Context(), id, patch)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPartResponse(p))
}

func (s *server) handleDeletePart(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.DeletePart(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
