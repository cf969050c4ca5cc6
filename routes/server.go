package routes

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/db44/storefront/handlers"
	"github.com/db44/storefront/metrics"
	mw "github.com/db44/storefront/middleware"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

type Deps struct {
	Models   *models.Models
	Sessions *session.Manager
	Renderer echo.Renderer
}

// NewServer builds the echo instance with the middleware chain and routes.
func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Renderer = d.Renderer

	e.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithField("method", v.Method).
				WithField("uri", v.URI).
				WithField("status", v.Status).
				WithField("latency", v.Latency).
				WithField("request_id", v.RequestID)
			if v.Error != nil {
				entry.WithError(v.Error).Error("Request failed")
				return nil
			}
			entry.Info("Request handled")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())
	e.Use(d.Sessions.Middleware())
	e.Use(mw.LoadUser)

	SetupRoutes(e, handlers.New(d.Models), mw.NewOwnership(d.Models))
	return e
}
