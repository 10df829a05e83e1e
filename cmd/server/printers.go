package main

import (
	"net/http"
	"strings"

	"github.com/Simplici0/sims/internal/httpx"
)

type printerRequest struct {
	Name string `json:"name" validate:"required"`
}

func (s *server) handleListPrinters(w http.ResponseWriter, r *http.Request) {
	printers, err := s.store.ListPrinters(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]printerResponse, 0, len(printers))
	for _, p := range printers {
		out = append(out, toPrinterResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (s *server) handleGetPrinter(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.GetPrinter(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPrinterResponse(p))
}

func (s *server) handleCreatePrinter(w http.ResponseWriter, r *http.Request) {
	var req printerRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.CreatePrinter(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPrinterResponse(p))
}

func (s *server) handleRenamePrinter(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req printerRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.RenamePrinter(r.Context(), id, strings.TrimSpace(req.Name))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPrinterResponse(p))
}

func (s *server) handleDeletePrinter(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.DeletePrinter(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
