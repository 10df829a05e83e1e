package main

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/sims/internal/costing"
	"github.com/Simplici0/sims/internal/httpx"
)

// settingsPayload carries settings as decimal strings so zero values round-trip as "0".
type settingsPayload struct {
	HourlyRate          *decimal.Decimal `json:"hourly_rate" validate:"required"`
	WearTearMarkup      *decimal.Decimal `json:"wear_tear_markup" validate:"required"`
	PlatformFees        *decimal.Decimal `json:"platform_fees" validate:"required"`
	FilamentSpoolPrice  *decimal.Decimal `json:"filament_spool_price" validate:"required"`
	DesiredProfitMargin *decimal.Decimal `json:"desired_profit_margin" validate:"required"`
	PackagingCost       *decimal.Decimal `json:"packaging_cost" validate:"required"`
	SpoolWeight         *decimal.Decimal `json:"spool_weight" validate:"required"`
	FilamentMarkup      *decimal.Decimal `json:"filament_markup" validate:"required"`
}

type settingsResponse struct {
	settingsPayload
	Pricable bool `json:"pricable"`
}

func toSettingsResponse(s costing.Settings) settingsResponse {
	dec := func(v float64) *decimal.Decimal {
		d := decimal.NewFromFloat(v)
		return &d
	}
	return settingsResponse{
		settingsPayload: settingsPayload{
			HourlyRate:          dec(s.HourlyRate),
			WearTearMarkup:      dec(s.WearTearMarkup),
			PlatformFees:        dec(s.PlatformFees),
			FilamentSpoolPrice:  dec(s.FilamentSpoolPrice),
			DesiredProfitMargin: dec(s.DesiredProfitMargin),
			PackagingCost:       dec(s.PackagingCost),
			SpoolWeight:         dec(s.SpoolWeight),
			FilamentMarkup:      dec(s.FilamentMarkup),
		},
		Pricable: s.Pricable(),
	}
}

func (p settingsPayload) toSettings() (costing.Settings, error) {
	fields := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"hourly_rate", p.HourlyRate},
		{"wear_tear_markup", p.WearTearMarkup},
		{"platform_fees", p.PlatformFees},
		{"filament_spool_price", p.FilamentSpoolPrice},
		{"desired_profit_margin", p.DesiredProfitMargin},
		{"packaging_cost", p.PackagingCost},
		{"spool_weight", p.SpoolWeight},
		{"filament_markup", p.FilamentMarkup},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return costing.Settings{}, fmt.Errorf("%w: %s must be greater than or equal to 0", costing.ErrInvalidSettings, f.name)
		}
	}
	return costing.Settings{
		HourlyRate:          p.HourlyRate.InexactFloat64(),
		WearTearMarkup:      p.WearTearMarkup.InexactFloat64(),
		PlatformFees:        p.PlatformFees.InexactFloat64(),
		FilamentSpoolPrice:  p.FilamentSpoolPrice.InexactFloat64(),
		DesiredProfitMargin: p.DesiredProfitMargin.InexactFloat64(),
		PackagingCost:       p.PackagingCost.InexactFloat64(),
		SpoolWeight:         p.SpoolWeight.InexactFloat64(),
		FilamentMarkup:      p.FilamentMarkup.InexactFloat64(),
	}, nil
}

func (s *server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSettingsResponse(settings))
}

func (s *server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := decodeValid(r, &payload); err != nil {
		s.respondError(w, r, err)
		return
	}
	settings, err := payload.toSettings()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	stored, err := s.store.PutSettings(r.Context(), settings)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !stored.Pricable() {
		s.log.Warn().
			Float64("desired_profit_margin", stored.DesiredProfitMargin).
			Float64("platform_fees", stored.PlatformFees).
			Msg("settings leave no room for a finite suggested price")
	}
	httpx.JSON(w, http.StatusOK, toSettingsResponse(stored))
}
