package httpapi

import (
	"embed"
	"html/template"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// NewRouter mounts every route on a fresh gin engine. gatherer backs /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, serviceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(serviceName), h.accessLog())
	r.SetHTMLTemplate(pages)

	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	b := r.Group("/bkash")
	b.GET("/callback", h.callback)
	b.GET("/success", h.success)
	b.GET("/failed", h.failed)

	api := r.Group("/api")
	api.POST("/payments", h.createPayment)
	api.GET("/payments", h.listPayments)
	api.GET("/payments/:id", h.queryPayment)
	api.GET("/payments/:id/record", h.paymentRecord)
	api.POST("/payments/:id/execute", h.executePayment)
	api.POST("/payments/:id/refund", h.refundPayment)
	api.POST("/token/refresh", h.refreshToken)

	return r
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := h.now()
		c.Next()
		h.logger.Debug(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", h.now().Sub(start).String(),
		)
	}
}
