// Package inventory holds the stock records of the shop and the rules that flag
// them for reordering.
package inventory

import (
	"math"
	"time"

	"github.com/Simplici0/sims/internal/costing"
)

// Material enumerates the filament materials the shop stocks.
type Material string

const (
	MaterialABS     Material = "ABS"
	MaterialABSGF   Material = "ABS-GF"
	MaterialASA     Material = "ASA"
	MaterialPAHTCF  Material = "PAHT-CF"
	MaterialPC      Material = "PC"
	MaterialPETG    Material = "PETG"
	MaterialPETGCF  Material = "PETG-CF"
	MaterialPLA     Material = "PLA"
	MaterialPLAWood Material = "PLA+WOOD"
	MaterialPVA     Material = "PVA"
	MaterialTPU     Material = "TPU"
	MaterialOther   Material = "Other"
)

// Materials lists every accepted material in display order.
var Materials = []Material{
	MaterialABS, MaterialABSGF, MaterialASA, MaterialPAHTCF, MaterialPC, MaterialPETG,
	MaterialPETGCF, MaterialPLA, MaterialPLAWood, MaterialPVA, MaterialTPU, MaterialOther,
}

// QueueStatus is the lifecycle state of a print queue item.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueInProgress QueueStatus = "in_progress"
	QueueCompleted  QueueStatus = "completed"
)

// Business is the business unit a product is sold under.
type Business string

const (
	BusinessSuperFantastic Business = "Super Fantastic"
	BusinessCedarAndSail   Business = "Cedar & Sail"
)

// Businesses lists every accepted business unit.
var Businesses = []Business{BusinessSuperFantastic, BusinessCedarAndSail}

// Filament is a stocked filament spool type.
type Filament struct {
	ID                      int64
	Name                    string
	Material                Material
	Color                   string
	Color2                  string
	Color3                  string
	Quantity                int
	MinimumQuantity         int
	MinimumQuantityOverride *int
	Manufacturer            string
	// Cost is per kg; nil falls back to the spool price setting.
	Cost      *float64
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveMinimum returns the override when set, the automatic minimum otherwise.
func (f Filament) EffectiveMinimum() int {
	if f.MinimumQuantityOverride != nil {
		return *f.MinimumQuantityOverride
	}
	return f.MinimumQuantity
}

// BelowThreshold reports whether the filament should be reordered.
// Filaments use a strict comparison.
func (f Filament) BelowThreshold() bool {
	return f.Quantity < f.EffectiveMinimum()
}

// Colors returns the non-empty color bands, primary first.
func (f Filament) Colors() []string {
	colors := make([]string, 0, 3)
	for _, c := range []string{f.Color, f.Color2, f.Color3} {
		if c != "" {
			colors = append(colors, c)
		}
	}
	return colors
}

// ReorderQuantity is the number of spools needed to get back to the effective minimum.
func (f Filament) ReorderQuantity() int {
	if n := f.EffectiveMinimum() - f.Quantity; n > 0 {
		return n
	}
	return 1
}

// AdjustQuantity applies delta to a quantity, never going below zero.
// Increments that would overflow saturate at math.MaxInt.
func AdjustQuantity(quantity, delta int) int {
	if delta > 0 && quantity > math.MaxInt-delta {
		return math.MaxInt
	}
	if q := quantity + delta; q > 0 {
		return q
	}
	return 0
}

// Part is a stocked replacement part.
type Part struct {
	ID              int64
	Name            string
	Description     string
	Quantity        int
	MinimumQuantity int
	Supplier        string
	PartNumber      string
	Price           *float64
	Notes           string
	Printers        []Printer
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BelowThreshold reports whether the part should be reordered.
// Parts use an inclusive comparison, unlike filaments.
func (p Part) BelowThreshold() bool {
	return p.Quantity <= p.MinimumQuantity
}

// Printer is a machine in the shop.
type Printer struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrintQueueItem is a job waiting for, running on or finished by a printer.
type PrintQueueItem struct {
	ID        int64
	ItemName  string
	PrinterID *int64
	Printer   *Printer
	Color     string
	Status    QueueStatus
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PurchaseListItem is a filament to be bought.
type PurchaseListItem struct {
	ID         int64
	FilamentID int64
	Filament   *Filament
	Quantity   int
	Notes      string
	Ordered    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProductFilament is a filament attached to a product with its per-product usage.
type ProductFilament struct {
	Filament   Filament
	UsageGrams float64
}

// Product is a finished item the shop sells.
type Product struct {
	ID                  int64
	Name                string
	Business            Business
	FilamentUsed        float64
	PrintPrepTime       float64
	PostProcessingTime  float64
	AdditionalPartsCost float64
	ListPrice           float64
	Notes               string
	Filaments           []ProductFilament
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CostingInput maps the product and its attached filaments to the costing engine input.
func (p Product) CostingInput() costing.ProductInput {
	in := costing.ProductInput{
		PrintPrepMinutes:      p.PrintPrepTime,
		PostProcessingMinutes: p.PostProcessingTime,
		AdditionalPartsCost:   p.AdditionalPartsCost,
		ListPrice:             p.ListPrice,
		FilamentUsed:          p.FilamentUsed,
	}
	for _, pf := range p.Filaments {
		in.Filaments = append(in.Filaments, costing.FilamentUsage{
			FilamentID: pf.Filament.ID,
			UsageGrams: pf.UsageGrams,
			CostPerKg:  pf.Filament.Cost,
		})
	}
	return in
}

// FilamentIDs returns the ids of the attached filaments.
func (p Product) FilamentIDs() []int64 {
	ids := make([]int64, 0, len(p.Filaments))
	for _, pf := range p.Filaments {
		ids = append(ids, pf.Filament.ID)
	}
	return ids
}

// Priced computes the product breakdown under settings.
func (p Product) Priced(settings costing.Settings) costing.PricedProduct {
	return costing.PricedProduct{
		ListPrice:   p.ListPrice,
		Breakdown:   costing.Compute(p.CostingInput(), settings),
		FilamentIDs: p.FilamentIDs(),
	}
}

// LowStockFilaments returns the filaments below their effective minimum.
func LowStockFilaments(filaments []Filament) []Filament {
	out := make([]Filament, 0)
	for _, f := range filaments {
		if f.BelowThreshold() {
			out = append(out, f)
		}
	}
	return out
}

// LowStockParts returns the parts at or below their minimum.
func LowStockParts(parts []Part) []Part {
	out := make([]Part, 0)
	for _, p := range parts {
		if p.BelowThreshold() {
			out = append(out, p)
		}
	}
	return out
}
