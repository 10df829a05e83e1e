package costing

import "math"

// PricedProduct pairs a product's list price and filament references with its breakdown.
type PricedProduct struct {
	ListPrice   float64
	Breakdown   Breakdown
	FilamentIDs []int64
}

// Summary holds roll-up values over a product collection.
type Summary struct {
	Count               int
	Unpricable          int
	AverageProfitMargin float64
	AverageMarkup       float64
	UniqueFilamentIDs   []int64
}

// Summarize aggregates margins, markups and the distinct filaments used.
//
// Products whose profit margin is not finite are left out of the margin mean
// and counted in Unpricable. A zero total cost contributes 0 to the markup mean.
func Summarize(products []PricedProduct) Summary {
	s := Summary{Count: len(products), UniqueFilamentIDs: []int64{}}
	if len(products) == 0 {
		return s
	}

	seen := make(map[int64]struct{})
	var marginSum, markupSum float64
	priced := 0
	for _, p := range products {
		if m := p.Breakdown.ProfitMargin; math.IsNaN(m) || math.IsInf(m, 0) {
			s.Unpricable++
		} else {
			marginSum += m
			priced++
		}

		if p.Breakdown.TotalCost != 0 {
			markupSum += (p.ListPrice/p.Breakdown.TotalCost - 1) * 100
		}

		for _, id := range p.FilamentIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			s.UniqueFilamentIDs = append(s.UniqueFilamentIDs, id)
		}
	}

	if priced > 0 {
		s.AverageProfitMargin = marginSum / float64(priced)
	}
	s.AverageMarkup = markupSum / float64(len(products))
	return s
}
