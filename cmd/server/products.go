package main

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/sims/internal/costing"
	"github.com/Simplici0/sims/internal/httpx"
	"github.com/Simplici0/sims/internal/inventory"
	"github.com/Simplici0/sims/internal/store"
)

// breakdownResponse renders non-finite values as null and names the reason in PricingError.
type breakdownResponse struct {
	LaborCost         *float64 `json:"labor_cost"`
	FilamentCost      *float64 `json:"filament_cost"`
	FilamentUsed      *float64 `json:"filament_used"`
	WearTearCost      *float64 `json:"wear_tear_cost"`
	PackagingCost     *float64 `json:"packaging_cost"`
	TotalCost         *float64 `json:"total_cost"`
	SuggestedPrice    *float64 `json:"suggested_price"`
	SellingPrice      *float64 `json:"selling_price"`
	PlatformFeeAmount *float64 `json:"platform_fee_amount"`
	GrossProfit       *float64 `json:"gross_profit"`
	ProfitMargin      *float64 `json:"profit_margin"`
	AdvertisingBudget *float64 `json:"advertising_budget"`
	PricingError      string   `json:"pricing_error,omitempty"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toBreakdownResponse(b costing.Breakdown) breakdownResponse {
	out := breakdownResponse{
		LaborCost:         finite(b.LaborCost),
		FilamentCost:      finite(b.FilamentCost),
		FilamentUsed:      finite(b.FilamentUsed),
		WearTearCost:      finite(b.WearTearCost),
		PackagingCost:     finite(b.PackagingCost),
		TotalCost:         finite(b.TotalCost),
		SuggestedPrice:    finite(b.SuggestedPrice),
		SellingPrice:      finite(b.SellingPrice),
		PlatformFeeAmount: finite(b.PlatformFeeAmount),
		GrossProfit:       finite(b.GrossProfit),
		ProfitMargin:      finite(b.ProfitMargin),
		AdvertisingBudget: finite(b.AdvertisingBudget),
	}
	if err := b.Err(); err != nil {
		out.PricingError = err.Error()
	}
	return out
}

type productFilamentResponse struct {
	FilamentID int64    `json:"filament_id"`
	Name       string   `json:"name"`
	Material   string   `json:"material"`
	Color      string   `json:"color"`
	Cost       *float64 `json:"cost"`
	UsageGrams float64  `json:"usage_grams"`
}

func toProductFilamentsResponse(filaments []inventory.ProductFilament) []productFilamentResponse {
	out := make([]productFilamentResponse, 0, len(filaments))
	for _, pf := range filaments {
		out = append(out, productFilamentResponse{
			FilamentID: pf.Filament.ID,
			Name:       pf.Filament.Name,
			Material:   string(pf.Filament.Material),
			Color:      pf.Filament.Color,
			Cost:       pf.Filament.Cost,
			UsageGrams: pf.UsageGrams,
		})
	}
	return out
}

type productResponse struct {
	ID                  int64                     `json:"id"`
	Name                string                    `json:"name"`
	Business            string                    `json:"business"`
	FilamentUsed        float64                   `json:"filament_used"`
	PrintPrepTime       float64                   `json:"print_prep_time"`
	PostProcessingTime  float64                   `json:"post_processing_time"`
	AdditionalPartsCost float64                   `json:"additional_parts_cost"`
	ListPrice           float64                   `json:"list_price"`
	Notes               string                    `json:"notes,omitempty"`
	Filaments           []productFilamentResponse `json:"filaments"`
	Breakdown           breakdownResponse         `json:"breakdown"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

func toProductResponse(p inventory.Product, b costing.Breakdown) productResponse {
	return productResponse{
		ID:                  p.ID,
		Name:                p.Name,
		Business:            string(p.Business),
		FilamentUsed:        p.FilamentUsed,
		PrintPrepTime:       p.PrintPrepTime,
		PostProcessingTime:  p.PostProcessingTime,
		AdditionalPartsCost: p.AdditionalPartsCost,
		ListPrice:           p.ListPrice,
		Notes:               p.Notes,
		Filaments:           toProductFilamentsResponse(p.Filaments),
		Breakdown:           toBreakdownResponse(b),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

type productFilamentRequest struct {
	FilamentID int64   `json:"filament_id" validate:"required,gt=0"`
	UsageGrams float64 `json:"usage_grams" validate:"gte=0"`
}

type createProductRequest struct {
	Name                string                   `json:"name" validate:"required"`
	Business            string                   `json:"business" validate:"required,business"`
	FilamentUsed        float64                  `json:"filament_used" validate:"gte=0"`
	PrintPrepTime       float64                  `json:"print_prep_time" validate:"gte=0"`
	PostProcessingTime  float64                  `json:"post_processing_time" validate:"gte=0"`
	AdditionalPartsCost float64                  `json:"additional_parts_cost" validate:"gte=0"`
	ListPrice           float64                  `json:"list_price" validate:"gte=0"`
	Notes               string                   `json:"notes"`
	Filaments           []productFilamentRequest `json:"filaments" validate:"dive"`
}

type updateProductRequest struct {
	Name                *string  `json:"name" validate:"omitempty,min=1"`
	Business            *string  `json:"business" validate:"omitempty,business"`
	FilamentUsed        *float64 `json:"filament_used" validate:"omitempty,gte=0"`
	PrintPrepTime       *float64 `json:"print_prep_time" validate:"omitempty,gte=0"`
	PostProcessingTime  *float64 `json:"post_processing_time" validate:"omitempty,gte=0"`
	AdditionalPartsCost *float64 `json:"additional_parts_cost" validate:"omitempty,gte=0"`
	ListPrice           *float64 `json:"list_price" validate:"omitempty,gte=0"`
	Notes               *string  `json:"notes"`
}

func (req updateProductRequest) patch() store.ProductPatch {
	p := store.ProductPatch{
		Name:                req.Name,
		FilamentUsed:        req.FilamentUsed,
		PrintPrepTime:       req.PrintPrepTime,
		PostProcessingTime:  req.PostProcessingTime,
		AdditionalPartsCost: req.AdditionalPartsCost,
		ListPrice:           req.ListPrice,
		Notes:               req.Notes,
	}
	if req.Business != nil {
		b := inventory.Business(*req.Business)
		p.Business = &b
	}
	return p
}

type filamentUsageRequest struct {
	UsageGrams float64 `json:"usage_grams" validate:"gte=0"`
}

type summaryResponse struct {
	Count               int                `json:"count"`
	Unpricable          int                `json:"unpricable"`
	AverageProfitMargin float64            `json:"average_profit_margin"`
	AverageMarkup       float64            `json:"average_markup"`
	UniqueFilamentIDs   []int64            `json:"unique_filament_ids"`
	UniqueFilaments     []filamentResponse `json:"unique_filaments"`
}

// pricedProduct pairs a stored product with its breakdown under the current settings.
type pricedProduct struct {
	product   inventory.Product
	breakdown costing.Breakdown
}

// loadProducts loads settings and products concurrently.
func (s *server) loadProducts(ctx context.Context, business inventory.Business) ([]inventory.Product, costing.Settings, error) {
	var settings costing.Settings
	var products []inventory.Product

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = s.store.GetSettings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.store.ListProducts(gctx, business)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, costing.Settings{}, err
	}
	return products, settings, nil
}

// loadPricedProducts prices every product under the current settings.
func (s *server) loadPricedProducts(ctx context.Context, business inventory.Business) ([]pricedProduct, error) {
	products, settings, err := s.loadProducts(ctx, business)
	if err != nil {
		return nil, err
	}

	inputs := make([]costing.ProductInput, len(products))
	for i, p := range products {
		inputs[i] = p.CostingInput()
	}
	breakdowns := costing.Recompute(inputs, settings)

	out := make([]pricedProduct, len(products))
	for i := range products {
		out[i] = pricedProduct{product: products[i], breakdown: breakdowns[i]}
	}
	return out, nil
}

var productSortKeys = map[string]func(pricedProduct) float64{
	"total_cost":    func(p pricedProduct) float64 { return p.breakdown.TotalCost },
	"profit_margin": func(p pricedProduct) float64 { return p.breakdown.ProfitMargin },
	"selling_price": func(p pricedProduct) float64 { return p.breakdown.SellingPrice },
}

// sortProducts orders by name or a breakdown field. Products without a finite
// value always sort last.
func sortProducts(items []pricedProduct, field, dir string) error {
	desc := false
	switch strings.ToLower(dir) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return fmt.Errorf("%w: dir must be asc or desc", httpx.ErrBadRequest)
	}

	if field == "" || field == "name" {
		slices.SortStableFunc(items, func(a, b pricedProduct) int {
			c := cmp.Compare(strings.ToLower(a.product.Name), strings.ToLower(b.product.Name))
			if desc {
				return -c
			}
			return c
		})
		return nil
	}

	key, ok := productSortKeys[field]
	if !ok {
		return fmt.Errorf("%w: unknown sort field %q", httpx.ErrBadRequest, field)
	}
	slices.SortStableFunc(items, func(a, b pricedProduct) int {
		av, bv := finite(key(a)), finite(key(b))
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return 1
		case bv == nil:
			return -1
		}
		c := cmp.Compare(*av, *bv)
		if desc {
			return -c
		}
		return c
	})
	return nil
}

func parseBusiness(raw string) (inventory.Business, error) {
	if raw == "" {
		return "", nil
	}
	b := inventory.Business(raw)
	if !slices.Contains(inventory.Businesses, b) {
		return "", fmt.Errorf("%w: unknown business %q", httpx.ErrBadRequest, raw)
	}
	return b, nil
}

// handleListProducts supports ?business=, ?sort=name|total_cost|profit_margin|selling_price and ?dir=asc|desc.
func (s *server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	business, err := parseBusiness(r.URL.Query().Get("business"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	items, err := s.loadPricedProducts(r.Context(), business)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sortProducts(items, r.URL.Query().Get("sort"), r.URL.Query().Get("dir")); err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]productResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toProductResponse(item.product, item.breakdown))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (s *server) handleProductSummary(w http.ResponseWriter, r *http.Request) {
	business, err := parseBusiness(r.URL.Query().Get("business"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	products, settings, err := s.loadProducts(r.Context(), business)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	priced := make([]costing.PricedProduct, 0, len(products))
	filaments := make(map[int64]inventory.Filament)
	for _, p := range products {
		priced = append(priced, p.Priced(settings))
		for _, pf := range p.Filaments {
			filaments[pf.Filament.ID] = pf.Filament
		}
	}
	summary := costing.Summarize(priced)
	s.metrics.SetUnpricable(summary.Unpricable)

	unique := make([]filamentResponse, 0, len(summary.UniqueFilamentIDs))
	for _, id := range summary.UniqueFilamentIDs {
		unique = append(unique, toFilamentResponse(filaments[id]))
	}
	httpx.JSON(w, http.StatusOK, summaryResponse{
		Count:               summary.Count,
		Unpricable:          summary.Unpricable,
		AverageProfitMargin: summary.AverageProfitMargin,
		AverageMarkup:       summary.AverageMarkup,
		UniqueFilamentIDs:   summary.UniqueFilamentIDs,
		UniqueFilaments:     unique,
	})
}

// respondProduct prices p under the current settings and writes it.
func (s *server) respondProduct(w http.ResponseWriter, r *http.Request, status int, p inventory.Product) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, status, toProductResponse(p, costing.Compute(p.CostingInput(), settings)))
}

func (s *server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
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
	s.respondProduct(w, r, http.StatusOK, p)
}

func (s *server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	in := inventory.Product{
		Name:                req.Name,
		Business:            inventory.Business(req.Business),
		FilamentUsed:        req.FilamentUsed,
		PrintPrepTime:       req.PrintPrepTime,
		PostProcessingTime:  req.PostProcessingTime,
		AdditionalPartsCost: req.AdditionalPartsCost,
		ListPrice:           req.ListPrice,
		Notes:               req.Notes,
	}
	for _, f := range req.Filaments {
		in.Filaments = append(in.Filaments, inventory.ProductFilament{
			Filament:   inventory.Filament{ID: f.FilamentID},
			UsageGrams: f.UsageGrams,
		})
	}

	p, err := s.store.CreateProduct(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondProduct(w, r, http.StatusCreated, p)
}

func (s *server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req updateProductRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.UpdateProduct(r.Context(), id, req.patch())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondProduct(w, r, http.StatusOK, p)
}

func (s *server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.DeleteProduct(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (s *server) handleListProductFilaments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	filaments, err := s.store.ProductFilaments(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductFilamentsResponse(filaments))
}

func (s *server) handleAttachFilament(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req productFilamentRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.AttachFilament(r.Context(), id, req.FilamentID, req.UsageGrams)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondProduct(w, r, http.StatusCreated, p)
}

func (s *server) handleSetFilamentUsage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	filamentID, err := parseID(r, "filamentID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req filamentUsageRequest
	if err := decodeValid(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.SetFilamentUsage(r.Context(), id, filamentID, req.UsageGrams)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondProduct(w, r, http.StatusOK, p)
}

func (s *server) handleDetachFilament(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	filamentID, err := parseID(r, "filamentID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.store.DetachFilament(r.Context(), id, filamentID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondProduct(w, r, http.StatusOK, p)
}
