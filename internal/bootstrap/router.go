package bootstrap

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Domenick1991/tripbooking/api"
	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/Domenick1991/tripbooking/internal/service/draft"
	"github.com/Domenick1991/tripbooking/internal/service/link"
	"github.com/Domenick1991/tripbooking/internal/service/offers"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Services struct {
	Offers   offers.OfferUseCase
	Drafts   draft.DraftUseCase
	Bookings booking.BookingUseCase
	Links    link.LinkUseCase
	Health   []HealthCheck
}

func NewRouter(cfg *config.Config, svc Services, logger logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	if len(cfg.HTTP.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.HTTP.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", api.AccountHeader},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", healthHandler(svc.Health))

	if cfg.HTTP.SwaggerDir != "" {
		r.StaticFile("/openapi.json", filepath.Join(cfg.HTTP.SwaggerDir, "openapi.json"))
		r.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	}

	linkTTL := cfg.Booking.LinkTTL()

	v1 := r.Group("/api/v1")
	api.NewOfferHandler(svc.Offers).Register(v1.Group("/offers", api.RequireAccount()))
	api.NewDraftHandler(svc.Drafts).Register(v1.Group("/drafts", api.RequireAccount()))
	api.NewBookingHandler(svc.Bookings, svc.Links, linkTTL, cfg.HTTP.GuestBaseURL).
		Register(v1.Group("/bookings", api.RequireAccount()))

	secret := api.RequireSecret(cfg.HTTP.WebhookSecret)
	api.NewPaymentHandler(svc.Drafts, svc.Bookings, svc.Links, linkTTL, logger).
		Register(v1.Group("/payments", secret))
	api.NewSupportHandler(svc.Bookings).Register(v1.Group("/support", secret))

	api.NewGuestHandler(svc.Links).Register(r.Group("/guest/bookings"))
	return r
}

func healthHandler(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := gin.H{}
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[hc.Name] = err.Error()
				continue
			}
			result[hc.Name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": result})
	}
}
