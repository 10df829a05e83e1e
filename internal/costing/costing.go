package costing

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnpricable is reported when desired margin and platform fees leave no room
// for costs, so no finite suggested price exists.
var ErrUnpricable = errors.New("costing: desired profit margin plus platform fees must be below 100")

// ErrInvalidSettings marks settings that fail validation.
var ErrInvalidSettings = errors.New("costing: invalid settings")

// Settings represents the global pricing knobs shared by every product.
type Settings struct {
	HourlyRate          float64
	WearTearMarkup      float64
	PlatformFees        float64
	FilamentSpoolPrice  float64
	DesiredProfitMargin float64
	PackagingCost       float64
	SpoolWeight         float64
	FilamentMarkup      float64
}

// DefaultSettings returns the values a fresh installation starts with.
func DefaultSettings() Settings {
	return Settings{
		FilamentSpoolPrice: 18,
		SpoolWeight:        1000,
		FilamentMarkup:     20,
	}
}

// Validate rejects negative and non-finite values.
func (s Settings) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"hourly_rate", s.HourlyRate},
		{"wear_tear_markup", s.WearTearMarkup},
		{"platform_fees", s.PlatformFees},
		{"filament_spool_price", s.FilamentSpoolPrice},
		{"desired_profit_margin", s.DesiredProfitMargin},
		{"packaging_cost", s.PackagingCost},
		{"spool_weight", s.SpoolWeight},
		{"filament_markup", s.FilamentMarkup},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidSettings, f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%w: %s must be greater than or equal to 0", ErrInvalidSettings, f.name)
		}
	}
	return nil
}

// Pricable reports whether a finite suggested price can be derived.
func (s Settings) Pricable() bool {
	return s.DesiredProfitMargin+s.PlatformFees < 100
}

// FilamentUsage is one filament attached to a product.
type FilamentUsage struct {
	FilamentID int64
	UsageGrams float64
	// CostPerKg overrides Settings.FilamentSpoolPrice when set.
	CostPerKg *float64
}

// ProductInput represents the product-level inputs of the calculation.
type ProductInput struct {
	PrintPrepMinutes      float64
	PostProcessingMinutes float64
	AdditionalPartsCost   float64
	ListPrice             float64
	// FilamentUsed is the legacy total in grams, used only when Filaments is empty.
	FilamentUsed float64
	Filaments    []FilamentUsage
}

// Breakdown contains all intermediate and derived values of a product calculation.
type Breakdown struct {
	LaborCost         float64
	FilamentCost      float64
	FilamentUsed      float64
	WearTearCost      float64
	PackagingCost     float64
	TotalCost         float64
	SuggestedPrice    float64
	SellingPrice      float64
	PlatformFeeAmount float64
	GrossProfit       float64
	ProfitMargin      float64
	AdvertisingBudget float64
}

// Err returns ErrUnpricable when the selling price could not be derived.
func (b Breakdown) Err() error {
	if math.IsInf(b.SuggestedPrice, 0) || math.IsNaN(b.SuggestedPrice) {
		return ErrUnpricable
	}
	return nil
}

// Priced reports whether the selling price and the fields derived from it are finite.
func (b Breakdown) Priced() bool {
	return !math.IsInf(b.SellingPrice, 0) && !math.IsNaN(b.SellingPrice)
}

// Compute derives the cost, price and profit breakdown of a product.
func Compute(product ProductInput, settings Settings) Breakdown {
	laborCost := (product.PrintPrepMinutes + product.PostProcessingMinutes) / 60.0 * settings.HourlyRate

	filamentCost, filamentUsed := filamentTotals(product, settings)
	wearTearCost := filamentCost * (settings.WearTearMarkup / 100.0)

	totalCost := laborCost + filamentCost + wearTearCost + product.AdditionalPartsCost + settings.PackagingCost

	suggestedPrice := math.Inf(1)
	if denominator := 1 - settings.DesiredProfitMargin/100.0 - settings.PlatformFees/100.0; denominator > 0 {
		suggestedPrice = totalCost / denominator
	}

	sellingPrice := suggestedPrice
	if product.ListPrice > 0 {
		sellingPrice = product.ListPrice
	}

	b := Breakdown{
		LaborCost:      laborCost,
		FilamentCost:   filamentCost,
		FilamentUsed:   filamentUsed,
		WearTearCost:   wearTearCost,
		PackagingCost:  settings.PackagingCost,
		TotalCost:      totalCost,
		SuggestedPrice: suggestedPrice,
		SellingPrice:   sellingPrice,
	}

	if math.IsInf(sellingPrice, 0) {
		b.PlatformFeeAmount = math.NaN()
		b.GrossProfit = math.NaN()
		b.ProfitMargin = math.NaN()
		b.AdvertisingBudget = math.NaN()
		return b
	}

	b.PlatformFeeAmount = sellingPrice * (settings.PlatformFees / 100.0)
	b.GrossProfit = sellingPrice - totalCost - b.PlatformFeeAmount
	if sellingPrice > 0 {
		b.ProfitMargin = b.GrossProfit / sellingPrice * 100.0
	}
	b.AdvertisingBudget = math.Max(0, b.GrossProfit-sellingPrice*(settings.DesiredProfitMargin/100.0))

	return b
}

// Recompute evaluates every product against the same settings, preserving order.
func Recompute(products []ProductInput, settings Settings) []Breakdown {
	out := make([]Breakdown, len(products))
	for i, p := range products {
		out[i] = Compute(p, settings)
	}
	return out
}

func filamentTotals(product ProductInput, settings Settings) (cost, grams float64) {
	if len(product.Filaments) == 0 {
		return (product.FilamentUsed / 1000.0) * settings.FilamentSpoolPrice, product.FilamentUsed
	}

	for _, f := range product.Filaments {
		costPerKg := settings.FilamentSpoolPrice
		if f.CostPerKg != nil {
			costPerKg = *f.CostPerKg
		}
		cost += (f.UsageGrams / 1000.0) * costPerKg
		grams += f.UsageGrams
	}
	return cost, grams
}
