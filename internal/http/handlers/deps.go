package handlers

import (
	"github.com/prometheus/client_golang/prometheus"

	"detaltap/internal/config"
	"detaltap/internal/media"
	"detaltap/internal/metrics"
	"detaltap/internal/present"
	"detaltap/internal/services"
	"detaltap/internal/telegram"
)

type Deps struct {
	Webhook      *WebhookHandler
	Admin        *AdminHandler
	Media        *MediaHandler
	Search       *SearchHandler
	Gatherer     prometheus.Gatherer
	AdminKeyHash string
}

func NewDeps(cfg config.Config, h telegram.Handler, gate *services.Gate, store *media.FileStore,
	f *present.Formatter, m *metrics.Metrics, g prometheus.Gatherer) *Deps {
	return &Deps{
		Webhook: &WebhookHandler{Secret: cfg.WebhookSecret, Handler: h},
		Admin: &AdminHandler{
			Gate:     gate,
			Format:   f,
			Metrics:  m,
			Operator: cfg.OperatorID(),
			PageSize: 20,
		},
		Media:        &MediaHandler{Store: store},
		Search:       &SearchHandler{Catalog: services.NewCatalogService(gate.Listings, m), MaxResults: cfg.MaxResults},
		Gatherer:     g,
		AdminKeyHash: cfg.AdminKeyHash,
	}
}
