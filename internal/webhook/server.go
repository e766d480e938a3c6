// internal/webhook/server.go
package webhook

import (
	"fmt"
	"net/http"
	"time"

	"forbill-bot/internal/audit"
	"forbill-bot/internal/bot"
	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/intent"
	"forbill-bot/internal/payment"
	"forbill-bot/internal/replies"
	"forbill-bot/internal/session"
	"forbill-bot/internal/store"
	"forbill-bot/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server owns the inbound HTTP surface: the WhatsApp webhook, the payment
// gateway callback, health and metrics.
type Server struct {
	cfg        config.Config
	store      *store.Store
	classifier *intent.Classifier
	dispatcher *bot.Dispatcher
	sender     whatsapp.Sender
	auditor    *audit.Auditor
	limiter    *session.RateLimiter
	deduper    *session.Deduper
	gateway    payment.Gateway
	replies    *replies.Builder
	logger     logger.Logger
}

type ServerConfig struct {
	Config     config.Config
	Store      *store.Store
	Classifier *intent.Classifier
	Dispatcher *bot.Dispatcher
	Sender     whatsapp.Sender
	Auditor    *audit.Auditor
	Limiter    *session.RateLimiter
	Deduper    *session.Deduper
	Gateway    payment.Gateway
	Replies    *replies.Builder
	Logger     logger.Logger
}

func NewServer(sc ServerConfig) *Server {
	log := sc.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{
		cfg:        sc.Config,
		store:      sc.Store,
		classifier: sc.Classifier,
		dispatcher: sc.Dispatcher,
		sender:     sc.Sender,
		auditor:    sc.Auditor,
		limiter:    sc.Limiter,
		deduper:    sc.Deduper,
		gateway:    sc.Gateway,
		replies:    sc.Replies,
		logger:     log.WithFields(map[string]interface{}{"component": "webhook"}),
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	if s.cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/webhooks/whatsapp", s.VerifyWhatsApp)
	router.POST("/webhooks/whatsapp", s.ReceiveWhatsApp)
	router.POST("/webhooks/payment", s.PaymentCallback)

	return router
}

// HTTPServer wraps the router with the configured timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Millisecond,
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}
