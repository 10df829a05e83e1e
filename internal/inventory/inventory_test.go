package inventory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/sims/internal/costing"
)

func intPtr(v int) *int { return &v }

func TestFilamentBelowThreshold_OverrideAndReset(t *testing.T) {
	f := Filament{Quantity: 5, MinimumQuantity: 10}
	require.True(t, f.BelowThreshold())

	f.MinimumQuantityOverride = intPtr(3)
	require.False(t, f.BelowThreshold())
	require.Equal(t, 3, f.EffectiveMinimum())

	// The automatic minimum moves while the override is active.
	f.MinimumQuantity = 8
	require.False(t, f.BelowThreshold())

	f.MinimumQuantityOverride = nil
	require.True(t, f.BelowThreshold())
	require.Equal(t, 8, f.EffectiveMinimum())
}

func TestFilamentBelowThreshold_IsStrict(t *testing.T) {
	require.False(t, Filament{Quantity: 4, MinimumQuantity: 4}.BelowThreshold())
	require.True(t, Filament{Quantity: 3, MinimumQuantity: 4}.BelowThreshold())
}

func TestFilamentOverrideOfZeroIsNotAutomatic(t *testing.T) {
	f := Filament{Quantity: 0, MinimumQuantity: 2, MinimumQuantityOverride: intPtr(0)}
	require.False(t, f.BelowThreshold())
}

func TestPartBelowThreshold_IsInclusive(t *testing.T) {
	require.True(t, Part{Quantity: 4, MinimumQuantity: 4}.BelowThreshold())
	require.True(t, Part{Quantity: 0, MinimumQuantity: 0}.BelowThreshold())
	require.False(t, Part{Quantity: 5, MinimumQuantity: 4}.BelowThreshold())
}

func TestLowStockFilters(t *testing.T) {
	filaments := []Filament{
		{ID: 1, Quantity: 1, MinimumQuantity: 2},
		{ID: 2, Quantity: 2, MinimumQuantity: 2},
		{ID: 3, Quantity: 0, MinimumQuantity: 5, MinimumQuantityOverride: intPtr(0)},
	}
	parts := []Part{
		{ID: 1, Quantity: 2, MinimumQuantity: 2},
		{ID: 2, Quantity: 3, MinimumQuantity: 2},
	}

	low := LowStockFilaments(filaments)
	require.Len(t, low, 1)
	require.Equal(t, int64(1), low[0].ID)

	lowParts := LowStockParts(parts)
	require.Len(t, lowParts, 1)
	require.Equal(t, int64(1), lowParts[0].ID)
}

func TestAdjustQuantityClampsAtZero(t *testing.T) {
	require.Equal(t, 0, AdjustQuantity(0, -1))
	require.Equal(t, 0, AdjustQuantity(2, -5))
	require.Equal(t, 3, AdjustQuantity(2, 1))
}

func TestAdjustQuantitySaturatesOnOverflow(t *testing.T) {
	require.Equal(t, math.MaxInt, AdjustQuantity(5, math.MaxInt))
	require.Equal(t, math.MaxInt, AdjustQuantity(math.MaxInt, 1))
	require.Equal(t, 0, AdjustQuantity(-5, math.MinInt+10))
}

func TestReorderQuantity(t *testing.T) {
	require.Equal(t, 4, Filament{Quantity: 1, MinimumQuantity: 5}.ReorderQuantity())
	require.Equal(t, 1, Filament{Quantity: 6, MinimumQuantity: 5}.ReorderQuantity())
}

func TestFilamentColorsSkipsEmptyBands(t *testing.T) {
	f := Filament{Color: "#ff0000", Color3: "#0000ff"}
	require.Equal(t, []string{"#ff0000", "#0000ff"}, f.Colors())
}

func TestProductCostingInput(t *testing.T) {
	cost := 25.0
	p := Product{
		PrintPrepTime:       10,
		PostProcessingTime:  5,
		AdditionalPartsCost: 1,
		FilamentUsed:        500,
		Filaments: []ProductFilament{
			{Filament: Filament{ID: 7, Cost: &cost}, UsageGrams: 40},
			{Filament: Filament{ID: 9}, UsageGrams: 60},
		},
	}

	in := p.CostingInput()
	require.Len(t, in.Filaments, 2)
	require.Equal(t, int64(7), in.Filaments[0].FilamentID)
	require.Equal(t, 25.0, *in.Filaments[0].CostPerKg)
	require.Nil(t, in.Filaments[1].CostPerKg)
	require.Equal(t, []int64{7, 9}, p.FilamentIDs())

	priced := p.Priced(costing.Settings{FilamentSpoolPrice: 10})
	require.InDelta(t, 0.04*25+0.06*10+1, priced.Breakdown.TotalCost, 1e-9)
	require.InDelta(t, 100.0, priced.Breakdown.FilamentUsed, 1e-9)
}
