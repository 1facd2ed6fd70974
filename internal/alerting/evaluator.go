// Package alerting derives stock health views from the product counters: a
// severity band per product and reorder suggestions for anything at or below
// its reorder point. It is read-only over the catalog.
package alerting

import (
	"sort"
	"time"

	"stockpos/backend/internal/domain"
)

const criticalThreshold = 2

// Severity maps a product's quantity to a band, worst first: out of stock,
// critical (at most two units left), low (at or below the reorder point),
// otherwise ok. The low band matches the persisted LowStockAlert flag.
func Severity(product domain.Product) string {
	switch {
	case product.Quantity <= 0:
		return domain.StockSeverityOut
	case product.Quantity <= criticalThreshold:
		return domain.StockSeverityCritical
	case product.Quantity <= product.ReorderPoint:
		return domain.StockSeverityLow
	default:
		return domain.StockSeverityOK
	}
}

// BuildOverview projects the catalog into the dashboard view, worst severity
// first, ties broken by name.
func BuildOverview(storeID string, products []domain.Product, now time.Time) domain.StockOverview {
	projections := make([]domain.StockProjection, 0, len(products))
	for _, product := range products {
		if !product.Active {
			continue
		}
		projections = append(projections, domain.StockProjection{
			ProductID:     product.ID,
			SKU:           product.SKU,
			Name:          product.Name,
			Quantity:      product.Quantity,
			ReorderPoint:  product.ReorderPoint,
			LowStockAlert: product.LowStockAlert,
			Severity:      Severity(product),
		})
	}

	sort.Slice(projections, func(i, j int) bool {
		ri := severityRank(projections[i].Severity)
		rj := severityRank(projections[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return projections[i].Name < projections[j].Name
	})

	return domain.StockOverview{
		StoreID:     storeID,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Products:    projections,
	}
}

// ReorderSuggestions lists every product at or below its reorder point with a
// recommended purchase quantity: enough to restore the configured reorder
// quantity above the reorder point, costed at the product's cost price.
func ReorderSuggestions(storeID string, products []domain.Product, now time.Time) domain.ReorderSuggestionResponse {
	suggestions := make([]domain.ReorderSuggestion, 0, len(products))
	for _, product := range products {
		if !product.Active || product.Quantity > product.ReorderPoint {
			continue
		}

		recommended := product.ReorderQuantity
		if recommended < 1 {
			recommended = product.ReorderPoint*2 - product.Quantity
		}
		if recommended < 1 {
			recommended = 1
		}

		suggestions = append(suggestions, domain.ReorderSuggestion{
			ProductID:      product.ID,
			SKU:            product.SKU,
			Name:           product.Name,
			Quantity:       product.Quantity,
			ReorderPoint:   product.ReorderPoint,
			RecommendedQty: recommended,
			EstimatedCents: int64(recommended) * product.CostPriceCents,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		si := severityRank(severityFor(suggestions[i].Quantity, suggestions[i].ReorderPoint))
		sj := severityRank(severityFor(suggestions[j].Quantity, suggestions[j].ReorderPoint))
		if si != sj {
			return si < sj
		}
		return suggestions[i].Name < suggestions[j].Name
	})

	return domain.ReorderSuggestionResponse{
		StoreID:     storeID,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Suggestions: suggestions,
	}
}

func severityFor(quantity int, reorderPoint int) string {
	return Severity(domain.Product{Quantity: quantity, ReorderPoint: reorderPoint, Active: true})
}

func severityRank(severity string) int {
	switch severity {
	case domain.StockSeverityOut:
		return 0
	case domain.StockSeverityCritical:
		return 1
	case domain.StockSeverityLow:
		return 2
	default:
		return 3
	}
}
