package main

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/sims/internal/httpx"
)

func TestFilaments_ColorSearch(t *testing.T) {
	h := newTestHandler(t)
	red := createTestFilament(t, h, nil)
	createTestFilament(t, h, map[string]any{"name": "PLA Blue", "color": "#0000ff"})
	dual := createTestFilament(t, h, map[string]any{"name": "Silk Dual", "color": "#000000", "color2": "#fe0101"})

	rec := do(t, h, http.MethodGet, "/api/filaments?color=%23ff0000", nil)
	mustStatus(t, rec, http.StatusOK)
	got := decode[[]filamentResponse](t, rec)
	ids := make([]int64, 0, len(got))
	for _, f := range got {
		ids = append(ids, f.ID)
	}
	assert.ElementsMatch(t, []int64{red.ID, dual.ID}, ids)

	rec = do(t, h, http.MethodGet, "/api/filaments?color=%23ff0000&threshold=0", nil)
	mustStatus(t, rec, http.StatusOK)
	assert.Len(t, decode[[]filamentResponse](t, rec), 3)

	mustStatus(t, do(t, h, http.MethodGet, "/api/filaments?color=red", nil), http.StatusBadRequest)
	mustStatus(t, do(t, h, http.MethodGet, "/api/filaments?color=%23ff0000&threshold=101", nil), http.StatusBadRequest)
}

func TestFilaments_RejectColorsOutsideRGB(t *testing.T) {
	h := newTestHandler(t)

	for _, color := range []string{"#ff0000ff", "#f00f", "crimson"} {
		rec := do(t, h, http.MethodPost, "/api/filaments", map[string]any{"name": "Bad", "material": "PLA", "color": color})
		mustStatus(t, rec, http.StatusBadRequest)
		assert.Equal(t, "rgbhex", decode[httpx.ProblemDetail](t, rec).Fields["color"], color)
	}

	f := createTestFilament(t, h, map[string]any{"color2": "#00ff00"})
	path := fmt.Sprintf("/api/filaments/%d", f.ID)
	mustStatus(t, do(t, h, http.MethodPatch, path, map[string]string{"color2": "#00ff00aa"}), http.StatusBadRequest)

	rec := do(t, h, http.MethodPatch, path, map[string]string{"color2": ""})
	mustStatus(t, rec, http.StatusOK)
	assert.Empty(t, decode[filamentResponse](t, rec).Color2)

	rec = do(t, h, http.MethodGet, "/api/filaments?color=%23ff0000&threshold=0", nil)
	mustStatus(t, rec, http.StatusOK)
	assert.Len(t, decode[[]filamentResponse](t, rec), 1)
}

func TestFilaments_AdjustAndOverride(t *testing.T) {
	h := newTestHandler(t)
	f := createTestFilament(t, h, map[string]any{"quantity": 2, "minimum_quantity": 3, "minimum_quantity_override": 1})
	assert.Equal(t, 1, f.EffectiveMinimum)
	assert.False(t, f.BelowThreshold)

	path := fmt.Sprintf("/api/filaments/%d", f.ID)

	rec := do(t, h, http.MethodPost, path+"/adjust", map[string]int{"delta": -5})
	mustStatus(t, rec, http.StatusOK)
	got := decode[filamentResponse](t, rec)
	assert.Equal(t, 0, got.Quantity)
	assert.True(t, got.BelowThreshold)

	mustStatus(t, do(t, h, http.MethodPost, path+"/adjust", map[string]int{"delta": 0}), http.StatusBadRequest)
	mustStatus(t, do(t, h, http.MethodPost, path+"/adjust", map[string]int64{"delta": 1 << 62}), http.StatusBadRequest)

	rec = do(t, h, http.MethodPost, path+"/adjust", map[string]int{"delta": 4})
	mustStatus(t, rec, http.StatusOK)
	got = decode[filamentResponse](t, rec)
	assert.Equal(t, 4, got.Quantity)
	assert.False(t, got.BelowThreshold)

	rec = do(t, h, http.MethodDelete, path+"/minimum-override", nil)
	mustStatus(t, rec, http.StatusOK)
	got = decode[filamentResponse](t, rec)
	assert.Nil(t, got.MinimumQuantityOverride)
	assert.Equal(t, 3, got.EffectiveMinimum)

	rec = do(t, h, http.MethodGet, "/api/filaments?low_stock=1", nil)
	mustStatus(t, rec, http.StatusOK)
	assert.Empty(t, decode[[]filamentResponse](t, rec))
}

func TestFilaments_PatchLeavesAbsentFieldsAlone(t *testing.T) {
	h := newTestHandler(t)
	f := createTestFilament(t, h, map[string]any{"manufacturer": "Prusament", "cost": 25, "notes": "dry first"})

	rec := do(t, h, http.MethodPatch, fmt.Sprintf("/api/filaments/%d", f.ID), map[string]any{"quantity": 7})
	mustStatus(t, rec, http.StatusOK)
	got := decode[filamentResponse](t, rec)
	assert.Equal(t, 7, got.Quantity)
	assert.Equal(t, "Prusament", got.Manufacturer)
	assert.Equal(t, "dry first", got.Notes)
	require.NotNil(t, got.Cost)
	assert.Equal(t, 25.0, *got.Cost)

	rec = do(t, h, http.MethodGet, "/api/manufacturers", nil)
	mustStatus(t, rec, http.StatusOK)
	assert.Equal(t, []string{"Prusament"}, decode[[]string](t, rec))
}

func TestParts_PrinterAssociations(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodPost, "/api/printers", map[string]string{"name": "MK4"})
	mustStatus(t, rec, http.StatusCreated)
	printer := decode[printerResponse](t, rec)

	rec = do(t, h, http.MethodPost, "/api/parts", map[string]any{
		"name":             "Nozzle 0.4",
		"quantity":         2,
		"minimum_quantity": 2,
		"price":            4.5,
		"printer_ids":      []int64{printer.ID},
	})
	mustStatus(t, rec, http.StatusCreated)
	part := decode[partResponse](t, rec)
	require.Len(t, part.Printers, 1)
	assert.Equal(t, "MK4", part.Printers[0].Name)
	assert.True(t, part.BelowThreshold)

	rec = do(t, h, http.MethodPatch, fmt.Sprintf("/api/parts/%d", part.ID), `{"price": null, "printer_ids": []}`)
	mustStatus(t, rec, http.StatusOK)
	part = decode[partResponse](t, rec)
	assert.Nil(t, part.Price)
	assert.Empty(t, part.Printers)

	rec = do(t, h, http.MethodGet, "/api/parts?low_stock=true", nil)
	mustStatus(t, rec, http.StatusOK)
	assert.Len(t, decode[[]partResponse](t, rec), 1)
}

func TestQueue_CreateReorderAndClearPrinter(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodPost, "/api/printers", map[string]string{"name": "X1C"})
	mustStatus(t, rec, http.StatusCreated)
	printer := decode[printerResponse](t, rec)

	var ids []int64
	for _, name := range []string{"first", "second", "third"} {
		rec := do(t, h, http.MethodPost, "/api/print-queue", map[string]any{"item_name": name, "printer_id": printer.ID})
		mustStatus(t, rec, http.StatusCreated)
		item := decode[queueItemResponse](t, rec)
		assert.Equal(t, "pending", item.Status)
		ids = append(ids, item.ID)
	}

	rec = do(t, h, http.MethodPut, "/api/print-queue/order", map[string]any{"ids": []int64{ids[2], ids[0], ids[1]}})
	mustStatus(t, rec, http.StatusOK)
	items := decode[[]queueItemResponse](t, rec)
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0].ItemName)
	assert.Equal(t, "first", items[1].ItemName)
	assert.Equal(t, "second", items[2].ItemName)

	mustStatus(t, do(t, h, http.MethodPut, "/api/print-queue/order", map[string]any{"ids": []int64{ids[0]}}), http.StatusBadRequest)

	rec = do(t, h, http.MethodPatch, fmt.Sprintf("/api/print-queue/%d", ids[0]), `{"printer_id": null, "status": "in_progress"}`)
	mustStatus(t, rec, http.StatusOK)
	item := decode[queueItemResponse](t, rec)
	assert.Nil(t, item.PrinterID)
	assert.Equal(t, "in_progress", item.Status)

	mustStatus(t, do(t, h, http.MethodPatch, fmt.Sprintf("/api/print-queue/%d", ids[0]), map[string]string{"status": "lost"}), http.StatusBadRequest)
}

func TestPurchases_ReorderSuggestions(t *testing.T) {
	h := newTestHandler(t)
	low := createTestFilament(t, h, map[string]any{"quantity": 1, "minimum_quantity": 4})
	createTestFilament(t, h, map[string]any{"name": "Stocked", "quantity": 9, "minimum_quantity": 2})

	rec := do(t, h, http.MethodPost, "/api/purchase-list/reorder-suggestions", nil)
	mustStatus(t, rec, http.StatusOK)
	added := decode[[]purchaseResponse](t, rec)
	require.Len(t, added, 1)
	assert.Equal(t, low.ID, added[0].FilamentID)
	assert.Equal(t, 3, added[0].Quantity)
	require.NotNil(t, added[0].Filament)
	assert.Equal(t, "PLA Red", added[0].Filament.Name)

	rec = do(t, h, http.MethodPost, "/api/purchase-list/reorder-suggestions", nil)
	mustStatus(t, rec, http.StatusOK)
	assert.Empty(t, decode[[]purchaseResponse](t, rec))

	rec = do(t, h, http.MethodPatch, fmt.Sprintf("/api/purchase-list/%d", added[0].ID), map[string]bool{"ordered": true})
	mustStatus(t, rec, http.StatusOK)
	assert.True(t, decode[purchaseResponse](t, rec).Ordered)

	mustStatus(t, do(t, h, http.MethodPost, "/api/purchase-list", map[string]any{"filament_id": 999, "quantity": 1}), http.StatusNotFound)
	mustStatus(t, do(t, h, http.MethodDelete, fmt.Sprintf("/api/purchase-list/%d", added[0].ID), nil), http.StatusNoContent)
}
