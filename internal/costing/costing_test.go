package costing

import (
	"errors"
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func shopSettings() Settings {
	return Settings{
		HourlyRate:          20,
		WearTearMarkup:      5,
		PlatformFees:        7,
		FilamentSpoolPrice:  18,
		DesiredProfitMargin: 55,
		PackagingCost:       0.5,
		SpoolWeight:         1000,
		FilamentMarkup:      20,
	}
}

func float(v float64) *float64 { return &v }

func TestCompute_SingleFilamentWithoutOwnCost(t *testing.T) {
	product := ProductInput{
		PrintPrepMinutes:      10,
		PostProcessingMinutes: 5,
		AdditionalPartsCost:   0.5,
		Filaments:             []FilamentUsage{{FilamentID: 1, UsageGrams: 50}},
	}

	b := Compute(product, shopSettings())

	nearlyEqual(t, "laborCost", b.LaborCost, 5)
	nearlyEqual(t, "filamentCost", b.FilamentCost, 0.9)
	nearlyEqual(t, "filamentUsed", b.FilamentUsed, 50)
	nearlyEqual(t, "wearTearCost", b.WearTearCost, 0.045)
	nearlyEqual(t, "totalCost", b.TotalCost, 6.945)
	nearlyEqual(t, "suggestedPrice", b.SuggestedPrice, 6.945/0.38)
	nearlyEqual(t, "sellingPrice", b.SellingPrice, 6.945/0.38)
	nearlyEqual(t, "platformFeeAmount", b.PlatformFeeAmount, 6.945/0.38*0.07)
	nearlyEqual(t, "grossProfit", b.GrossProfit, 6.945/0.38*0.93-6.945)
	nearlyEqual(t, "profitMargin", b.ProfitMargin, 55)
	nearlyEqual(t, "advertisingBudget", b.AdvertisingBudget, 0)
	if err := b.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
}

func TestCompute_FilamentOwnCostOverridesSpoolPrice(t *testing.T) {
	product := ProductInput{
		Filaments: []FilamentUsage{
			{FilamentID: 1, UsageGrams: 100, CostPerKg: float(30)},
			{FilamentID: 2, UsageGrams: 200},
		},
	}
	settings := Settings{FilamentSpoolPrice: 20}

	b := Compute(product, settings)

	nearlyEqual(t, "filamentCost", b.FilamentCost, 3+4)
	nearlyEqual(t, "filamentUsed", b.FilamentUsed, 300)
}

func TestCompute_ExplicitZeroFilamentCostIsHonoured(t *testing.T) {
	product := ProductInput{Filaments: []FilamentUsage{{FilamentID: 1, UsageGrams: 100, CostPerKg: float(0)}}}

	b := Compute(product, Settings{FilamentSpoolPrice: 20})

	nearlyEqual(t, "filamentCost", b.FilamentCost, 0)
}

func TestCompute_LegacyFilamentUsedWhenNoAssociations(t *testing.T) {
	product := ProductInput{FilamentUsed: 250}

	b := Compute(product, Settings{FilamentSpoolPrice: 24})

	nearlyEqual(t, "filamentCost", b.FilamentCost, 6)
	nearlyEqual(t, "filamentUsed", b.FilamentUsed, 250)
}

func TestCompute_AssociationsWinOverLegacyScalar(t *testing.T) {
	product := ProductInput{
		FilamentUsed: 999,
		Filaments:    []FilamentUsage{{FilamentID: 3, UsageGrams: 10}},
	}

	b := Compute(product, Settings{FilamentSpoolPrice: 10})

	nearlyEqual(t, "filamentUsed", b.FilamentUsed, 10)
	nearlyEqual(t, "filamentCost", b.FilamentCost, 0.1)
}

func TestCompute_NoTimeNoFilamentIsPartsPlusPackaging(t *testing.T) {
	settings := shopSettings()
	product := ProductInput{AdditionalPartsCost: 2.25}

	b := Compute(product, settings)

	nearlyEqual(t, "totalCost", b.TotalCost, 2.25+settings.PackagingCost)
}

func TestCompute_ListPriceOverridesSuggestedPrice(t *testing.T) {
	settings := Settings{PlatformFees: 10, DesiredProfitMargin: 20}
	product := ProductInput{AdditionalPartsCost: 10, ListPrice: 40}

	b := Compute(product, settings)

	nearlyEqual(t, "suggestedPrice", b.SuggestedPrice, 10/0.7)
	nearlyEqual(t, "sellingPrice", b.SellingPrice, 40)
	nearlyEqual(t, "platformFeeAmount", b.PlatformFeeAmount, 4)
	nearlyEqual(t, "grossProfit", b.GrossProfit, 26)
	nearlyEqual(t, "profitMargin", b.ProfitMargin, 65)
	nearlyEqual(t, "advertisingBudget", b.AdvertisingBudget, 26-8)
}

func TestCompute_ZeroSellingPriceHasZeroMargin(t *testing.T) {
	b := Compute(ProductInput{}, Settings{})

	nearlyEqual(t, "sellingPrice", b.SellingPrice, 0)
	nearlyEqual(t, "profitMargin", b.ProfitMargin, 0)
	nearlyEqual(t, "advertisingBudget", b.AdvertisingBudget, 0)
}

func TestCompute_MarginPlusFeesAtHundredIsUnpricable(t *testing.T) {
	settings := Settings{DesiredProfitMargin: 90, PlatformFees: 10}
	product := ProductInput{AdditionalPartsCost: 5}

	b := Compute(product, settings)

	if !math.IsInf(b.SuggestedPrice, 1) {
		t.Fatalf("suggestedPrice = %v, want +Inf", b.SuggestedPrice)
	}
	if !errors.Is(b.Err(), ErrUnpricable) {
		t.Fatalf("Err() = %v, want ErrUnpricable", b.Err())
	}
	if b.Priced() {
		t.Fatalf("expected breakdown to be unpriced")
	}
	if !math.IsNaN(b.GrossProfit) || !math.IsNaN(b.ProfitMargin) {
		t.Fatalf("expected NaN gross profit and margin, got %v and %v", b.GrossProfit, b.ProfitMargin)
	}
	nearlyEqual(t, "totalCost", b.TotalCost, 5)
}

func TestCompute_UnpricableSettingsStillUseListPrice(t *testing.T) {
	settings := Settings{DesiredProfitMargin: 80, PlatformFees: 30}
	product := ProductInput{AdditionalPartsCost: 5, ListPrice: 20}

	b := Compute(product, settings)

	if !errors.Is(b.Err(), ErrUnpricable) {
		t.Fatalf("Err() = %v, want ErrUnpricable", b.Err())
	}
	if !b.Priced() {
		t.Fatalf("expected list price to keep the breakdown priced")
	}
	nearlyEqual(t, "platformFeeAmount", b.PlatformFeeAmount, 6)
	nearlyEqual(t, "grossProfit", b.GrossProfit, 9)
	nearlyEqual(t, "advertisingBudget", b.AdvertisingBudget, 0)
}

func TestCompute_SuggestedPriceExceedsTotalCost(t *testing.T) {
	for _, margin := range []float64{0, 10, 45, 80} {
		for _, fees := range []float64{0, 5, 15} {
			settings := Settings{HourlyRate: 15, DesiredProfitMargin: margin, PlatformFees: fees, FilamentSpoolPrice: 20}
			if !settings.Pricable() {
				continue
			}
			b := Compute(ProductInput{PrintPrepMinutes: 30, FilamentUsed: 40}, settings)
			if margin+fees > 0 && b.SuggestedPrice <= b.TotalCost {
				t.Fatalf("margin=%v fees=%v: suggested %v <= total %v", margin, fees, b.SuggestedPrice, b.TotalCost)
			}
		}
	}
}

func TestCompute_IsIdempotent(t *testing.T) {
	product := ProductInput{
		PrintPrepMinutes:      12,
		PostProcessingMinutes: 7,
		AdditionalPartsCost:   1.1,
		Filaments:             []FilamentUsage{{FilamentID: 1, UsageGrams: 33.3, CostPerKg: float(21.5)}},
	}

	first := Compute(product, shopSettings())
	second := Compute(product, shopSettings())

	if first != second {
		t.Fatalf("Compute is not idempotent: %+v vs %+v", first, second)
	}
}

func TestCompute_CostInputsAreMonotonic(t *testing.T) {
	base := shopSettings()
	product := ProductInput{
		PrintPrepMinutes:    10,
		AdditionalPartsCost: 1,
		Filaments:           []FilamentUsage{{FilamentID: 1, UsageGrams: 80, CostPerKg: float(20)}},
	}
	ref := Compute(product, base)

	bumps := map[string]func() Breakdown{
		"hourly_rate": func() Breakdown {
			s := base
			s.HourlyRate += 5
			return Compute(product, s)
		},
		"packaging_cost": func() Breakdown {
			s := base
			s.PackagingCost += 1
			return Compute(product, s)
		},
		"additional_parts_cost": func() Breakdown {
			p := product
			p.AdditionalPartsCost += 2
			return Compute(p, base)
		},
		"filament_cost": func() Breakdown {
			p := product
			p.Filaments = []FilamentUsage{{FilamentID: 1, UsageGrams: 80, CostPerKg: float(35)}}
			return Compute(p, base)
		},
	}

	for name, bump := range bumps {
		got := bump()
		if got.TotalCost < ref.TotalCost {
			t.Fatalf("%s: total cost decreased from %v to %v", name, ref.TotalCost, got.TotalCost)
		}
		if got.SellingPrice < ref.SellingPrice {
			t.Fatalf("%s: selling price decreased from %v to %v", name, ref.SellingPrice, got.SellingPrice)
		}
	}
}

func TestCompute_AdvertisingBudgetNeverNegative(t *testing.T) {
	settings := Settings{DesiredProfitMargin: 40, PlatformFees: 10}
	for _, listPrice := range []float64{0, 5, 10, 20, 50, 200} {
		b := Compute(ProductInput{AdditionalPartsCost: 10, ListPrice: listPrice}, settings)
		if b.AdvertisingBudget < 0 {
			t.Fatalf("listPrice=%v: advertising budget %v < 0", listPrice, b.AdvertisingBudget)
		}
		if b.ProfitMargin <= settings.DesiredProfitMargin+1e-9 && b.AdvertisingBudget > 1e-9 {
			t.Fatalf("listPrice=%v: margin %v below desired but budget %v", listPrice, b.ProfitMargin, b.AdvertisingBudget)
		}
	}
}

func TestRecompute_PreservesOrder(t *testing.T) {
	products := []ProductInput{{AdditionalPartsCost: 1}, {AdditionalPartsCost: 2}, {AdditionalPartsCost: 3}}

	out := Recompute(products, Settings{})

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	for i, b := range out {
		nearlyEqual(t, "totalCost", b.TotalCost, float64(i+1))
	}
}

func TestSettings_Validate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}

	s := DefaultSettings()
	s.PackagingCost = -1
	if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("Validate() = %v, want ErrInvalidSettings", err)
	}
}

func TestSettings_ValidateRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		s := DefaultSettings()
		s.HourlyRate = v
		if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
			t.Fatalf("Validate() with hourly_rate %v = %v, want ErrInvalidSettings", v, err)
		}
	}
}
