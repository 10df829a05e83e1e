package main

import (
	"net/http"
	"time"

	"github.com/Simplici0/sims/internal/httpx"
	"github.com/Simplici0/sims/internal/inventory"
	"github.com/Simplici0/sims/internal/store"
)

type queueItemResponse struct {
	ID        int64            `json:"id"`
	ItemName  string           `json:"item_name"`
	PrinterID *int64           `json:"printer_id"`
	Printer   *printerResponse `json:"printer,omitempty"`
	Color     string           `json:"color,omitempty"`
	Status    string           `json:"status"`
	Position  int              `json:"position"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func toQueueItemResponse(item inventory.PrintQueueItem) queueItemResponse {
	out := queueItemResponse{
		ID:        item.ID,
		ItemName:  item.ItemName,
		PrinterID: item.PrinterID,
		Color:     item.Color,
		Status:    string(item.Status),
		Position:  item.Position,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Printer != nil {
		p := toPrinterResponse(*item.Printer)
		out.Printer = &p
	}
	return out
}

func toQueueResponse(items []inventory.PrintQueueItem) []queueItemResponse {
	out := make([]queueItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toQueueItemResponse(item))
	}
	return out
}

type createQueueItemRequest struct {
	ItemName  string `json:"item_name" validate:"required"`
	PrinterID *int64 `json:"printer_id" validate:"omitempty,gt=0"`
	Color     string `json:"color"`
	Status    string `json:"status" validate:"omitempty,queue_status"`
}

type updateQueueItemRequest struct {
	ItemName  *string         `json:"item_name" validate:"omitempty,min=1"`
	PrinterID nullable[int64] `json:"printer_id"`
	Color     *string         `json:"color"`
	Status    *string         `json:"status" validate:"omitempty,queue_status"`
}

func (req updateQueueItemRequest) patch() store.QueueItemPatch {
	p := store.QueueItemPatch{
		ItemName: req.ItemName,
		Color:    req.Color,
	}
	if req.PrinterID.Set {
		if req.PrinterID.Null {
			p.ClearPrinter = true
		} else {
			id := req.PrinterID.Value
			p.PrinterID = &id
		}
	}
	if req.Status != nil {
		status := inventory.QueueStatus(*req.Status)
		p.Status = &status
	}
	return p
}

type reorderQueueRequest struct {
	IDs []int64 `json:"ids" validate:"required,dive,gt=0"`
}

func (s *server) handleListQueue(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListQueue(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toQueueResponse(items))
}

func (s *server) handleGetQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	item, err := s.store.GetQueueItem(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toQueueItemResponse(item))
}

func (s *server) handleCreateQueueItem(w http.ResponseWriter, r *http.Request) {
	var req createQueueItemRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	item, err := s.store.CreateQueueItem(r.Context(), inventory.PrintQueueItem{
		ItemName:  req.ItemName,
		PrinterID: req.PrinterID,
		Color:     req.Color,
		Status:    inventory.QueueStatus(req.Status),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toQueueItemResponse(item))
}

func (s *server) handleUpdateQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req updateQueueItemRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	item, err := s.store.UpdateQueueItem(r.Context(), id, req.patch())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toQueueItemResponse(item))
}

func (s *server) handleDeleteQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.DeleteQueueItem(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// handleReorderQueue applies a full ordering of the queue in one transaction.
func (s *server) handleReorderQueue(w http.ResponseWriter, r *http.Request) {
	var req reorderQueueRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	items, err := s.store.ReorderQueue(r.Context(), req.IDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toQueueResponse(items))
}
