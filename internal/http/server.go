// README: API gateway; builds the gin engine and registers every route.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rideline/internal/config"
	"rideline/internal/http/handlers"
	"rideline/internal/http/middleware"
	"rideline/internal/infra"
	"rideline/internal/modules/offer"
	"rideline/internal/modules/payments"
	"rideline/internal/modules/presence"
	"rideline/internal/modules/quote"
)

const (
	roleDispatcher = "dispatcher"
)

type ServerDeps struct {
	Log      *slog.Logger
	Verifier infra.TokenVerifier
	Offer    *offer.Service
	Quote    *quote.Engine
	Presence *presence.Tracker
	// Payments is optional; without it the payment routes are not mounted.
	Payments    *payments.Service
	QuoteConfig config.QuoteConfig
}

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(deps.Log), middleware.Recovery(deps.Log))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Auth(deps.Verifier)
	api := r.Group("/api", auth)

	offerHandler := handlers.NewOfferHandler(deps.Offer, deps.Presence)
	rides := api.Group("/rides")
	rides.POST("/accept", offerHandler.Accept)
	rides.POST("/decline", offerHandler.Decline)
	rides.POST("/start", offerHandler.Start)
	rides.POST("/complete", offerHandler.Complete)
	rides.GET("/:id", offerHandler.Get)
	dispatch := rides.Group("", middleware.RequireRole(roleDispatcher))
	dispatch.POST("/retarget", offerHandler.Retarget)
	dispatch.POST("/cancel", offerHandler.Cancel)

	quoteHandler := handlers.NewQuoteHandler(deps.Quote)
	api.POST("/quote", quoteHandler.Quote)

	presenceHandler := handlers.NewPresenceHandler(deps.Presence)
	drivers := api.Group("/drivers")
	drivers.PUT("/:id/location", presenceHandler.UpdateLocation)
	drivers.POST("/:id/offline", presenceHandler.Offline)
	drivers.GET("/nearby", middleware.RequireRole(roleDispatcher), presenceHandler.Nearby)

	if deps.Payments != nil {
		paymentHandler := handlers.NewPaymentHandler(deps.Payments)
		pay := api.Group("/payments")
		pay.POST("/accounts", paymentHandler.CreateAccount)
		pay.POST("/account-links", paymentHandler.CreateAccountLink)
		pay.POST("/login-links", paymentHandler.CreateLoginLink)
		pay.POST("/intents", paymentHandler.CreateIntent)
		pay.POST("/intents/:id/confirm", paymentHandler.ConfirmIntent)
	}

	ws := r.Group("/ws", auth)
	eta := handlers.NewETAStream(deps.Quote, deps.QuoteConfig.LiveInterval, deps.QuoteConfig.MinInterval, deps.Log)
	ws.GET("/eta", eta.Serve)
	ws.GET("/presence", handlers.NewPresenceStream(deps.Presence, deps.Log).Serve)

	return r
}
