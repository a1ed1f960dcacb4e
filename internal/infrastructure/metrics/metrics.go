// Package metrics expone los contadores del motor de compras y de la API en formato Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
)

var _ purchasing.Metrics = (*Collector)(nil)

// Collector agrupa las métricas de negocio y HTTP registradas en un mismo Registerer.
type Collector struct {
	autoDrafts          *prometheus.CounterVec
	receipts            *prometheus.CounterVec
	receivedUnits       *prometheus.CounterVec
	suggestionRefreshes *prometheus.CounterVec
	suggestionDrafts    *prometheus.GaugeVec
	suggestionConverted *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registra las métricas con el prefijo namespace en reg (prometheus.DefaultRegisterer en producción,
// prometheus.NewRegistry() en pruebas).
func New(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)
	return &Collector{
		autoDrafts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_draft_total",
			Help:      "Borradores automáticos creados o ajustados por el disparador de reposición",
		}, []string{"action"}),
		receipts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_total",
			Help:      "Recepciones registradas por estado de conformidad",
		}, []string{"conformity"}),
		receivedUnits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_units_total",
			Help:      "Unidades recibidas por estado de conformidad",
		}, []string{"conformity"}),
		suggestionRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_refresh_total",
			Help:      "Refrescos de sugerencias por módulo",
		}, []string{"module"}),
		suggestionDrafts: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "suggestion_drafts",
			Help:      "Borradores de sugerencia vigentes tras el último refresco",
		}, []string{"module"}),
		suggestionConverted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_converted_total",
			Help:      "Sugerencias convertidas en orden de compra",
		}, []string{"module"}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total de peticiones HTTP",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP en segundos",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// AutoDraft cuenta una acción del disparador (auto_create, auto_raise).
func (c *Collector) AutoDraft(action string) {
	c.autoDrafts.WithLabelValues(action).Inc()
}

// Receipt cuenta una recepción y sus unidades.
func (c *Collector) Receipt(conformity string, qty int) {
	c.receipts.WithLabelValues(conformity).Inc()
	c.receivedUnits.WithLabelValues(conformity).Add(float64(qty))
}

// SuggestionsRefreshed registra el refresco de un módulo y los borradores resultantes.
func (c *Collector) SuggestionsRefreshed(moduleKey string, drafts int) {
	c.suggestionRefreshes.WithLabelValues(moduleKey).Inc()
	c.suggestionDrafts.WithLabelValues(moduleKey).Set(float64(drafts))
}

// SuggestionConverted cuenta una conversión.
func (c *Collector) SuggestionConverted(moduleKey string) {
	c.suggestionConverted.WithLabelValues(moduleKey).Inc()
}

// Middleware mide cada petición por método, ruta registrada y estado.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		path := ctx.Route().Path
		labels := []string{ctx.Method(), path, strconv.Itoa(status)}
		c.httpRequestsTotal.WithLabelValues(labels...).Inc()
		c.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}
