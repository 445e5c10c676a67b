package services

import (
	"context"

	"github.com/shopspring/decimal"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/metrics"
)

// CatalogService runs the read side of the marketplace for the chat flows and
// the public HTTP API alike.
type CatalogService struct {
	Listings domain.ListingStore
	Metrics  *metrics.Metrics
}

func NewCatalogService(listings domain.ListingStore, m *metrics.Metrics) *CatalogService {
	if m == nil {
		m = metrics.New(nil)
	}
	return &CatalogService{Listings: listings, Metrics: m}
}

// Search dispatches a validated query on its mode. VIN and OEM match exactly;
// keyword matches name or description.
func (s *CatalogService) Search(ctx context.Context, mode domain.SearchMode, q string) ([]domain.Listing, error) {
	var (
		ls  []domain.Listing
		err error
	)
	switch mode {
	case domain.SearchKeyword:
		ls, err = s.Listings.SearchByKeyword(ctx, q)
	case domain.SearchVIN:
		ls, err = s.Listings.SearchByVIN(ctx, q)
	case domain.SearchOEM:
		ls, err = s.Listings.SearchByOEM(ctx, q)
	default:
		return nil, domain.ValidationError{Field: "mode", Value: mode, Message: "unknown search mode"}
	}
	if err != nil {
		return nil, err
	}
	s.Metrics.Searches.WithLabelValues(string(mode)).Inc()
	applog.Info(ctx, "search.query", map[string]any{"mode": string(mode), "q": q, "hits": len(ls)})
	return ls, nil
}

// PriceRange is inclusive at both ends, cheapest first. Reversed bounds are swapped.
func (s *CatalogService) PriceRange(ctx context.Context, min, max decimal.Decimal) ([]domain.Listing, error) {
	if max.LessThan(min) {
		min, max = max, min
	}
	ls, err := s.Listings.SearchByPriceRange(ctx, min, max)
	if err != nil {
		return nil, err
	}
	s.Metrics.Searches.WithLabelValues("price").Inc()
	applog.Info(ctx, "search.price", map[string]any{"min": min.String(), "max": max.String(), "hits": len(ls)})
	return ls, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	return s.Listings.GetByID(ctx, id)
}
