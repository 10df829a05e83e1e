package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/sims/internal/costing"
	"github.com/Simplici0/sims/internal/httpx"
	"github.com/Simplici0/sims/internal/store"
)

func TestProblemFor_MapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("get filament 1: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("insert printer: %w", store.ErrConflict), http.StatusConflict},
		{fmt.Errorf("update part: %w", store.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: hourly_rate", costing.ErrInvalidSettings), http.StatusBadRequest},
		{fmt.Errorf("%w: empty", httpx.ErrBadRequest), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		status, _ := problemFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}

func TestRespondError_InternalErrorsHideDetail(t *testing.T) {
	srv := &server{log: zerolog.Nop()}
	rr := httptest.NewRecorder()
	srv.respondError(rr, httptest.NewRequest(http.MethodGet, "/api/filaments", nil), errors.New("database path /secret/dev.db"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.NotContains(t, rr.Body.String(), "/secret")
}

func TestValidator_RGBHex(t *testing.T) {
	type input struct {
		Color string `json:"color" validate:"rgbhex"`
	}
	for _, ok := range []string{"#ff0000", "#F00", "00ff00"} {
		assert.NoError(t, validate.Struct(input{Color: ok}), ok)
	}
	for _, bad := range []string{"#ff0000ff", "#f00f", "red", ""} {
		assert.Error(t, validate.Struct(input{Color: bad}), bad)
	}
}
