package main

import (
	"bytes"
	"io"
	"math"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Simplici0/sims/internal/costing"
	"github.com/Simplici0/sims/internal/inventory"
)

// writeCostSheet renders a product breakdown as aligned plain text.
func writeCostSheet(w io.Writer, p inventory.Product, settings costing.Settings) {
	pr := message.NewPrinter(language.English)
	b := costing.Compute(p.CostingInput(), settings)

	money := func(label string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			pr.Fprintf(w, "%-22s %12s\n", label, "n/a")
			return
		}
		pr.Fprintf(w, "%-22s %12.2f\n", label, v)
	}

	pr.Fprintf(w, "%s (%s)\n\n", p.Name, p.Business)
	if len(p.Filaments) > 0 {
		for _, pf := range p.Filaments {
			pr.Fprintf(w, "  %-20s %10.1f g\n", pf.Filament.Name, pf.UsageGrams)
		}
		pr.Fprintln(w)
	}
	pr.Fprintf(w, "%-22s %10.1f g\n", "Filament used", b.FilamentUsed)
	money("Labor", b.LaborCost)
	money("Filament", b.FilamentCost)
	money("Wear and tear", b.WearTearCost)
	money("Additional parts", p.AdditionalPartsCost)
	money("Packaging", b.PackagingCost)
	money("Total cost", b.TotalCost)
	pr.Fprintln(w)
	money("Suggested price", b.SuggestedPrice)
	money("Selling price", b.SellingPrice)
	money("Platform fees", b.PlatformFeeAmount)
	money("Gross profit", b.GrossProfit)
	if b.Priced() {
		pr.Fprintf(w, "%-22s %11.2f%%\n", "Profit margin", b.ProfitMargin)
	} else {
		pr.Fprintf(w, "%-22s %12s\n", "Profit margin", "n/a")
	}
	money("Advertising budget", b.AdvertisingBudget)
	if err := b.Err(); err != nil {
		pr.Fprintf(w, "\n%v\n", err)
	}
}

func (s *server) handleProductText(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	writeCostSheet(&buf, p, settings)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
