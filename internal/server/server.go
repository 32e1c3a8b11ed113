// Package server exposes the curated case-study catalog over HTTP:
// public listing and detail endpoints, plus JWT-protected curation for
// the admin.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentworks/casestudio/config"
	"github.com/agentworks/casestudio/internal/store"
)

// Run wires the full server: migrations, store, auth and routes.
func Run(cfg *config.Config, addr string) error {
	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return err
	}
	if err := cfg.Server.Validate(); err != nil {
		return err
	}

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		log.Printf("[HTTP] migrate: %v (continuing; schema may already be current)", err)
	}

	st, err := store.NewWithDSN(context.Background(), cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	e := newEcho()

	auth := &AuthHandler{
		AdminEmail:        cfg.Server.AdminEmail,
		AdminPasswordHash: cfg.Server.AdminPasswordHash,
		Secret:            []byte(cfg.Server.JWTSecret),
	}
	auth.Register(e.Group("/api/auth"))

	csh := &CaseStudiesHandler{Store: st}
	csh.Register(e.Group("/api/case-studies"), auth.Secret)

	oh := &OpsHandler{Store: st}
	oh.Register(e.Group("/api/ops"), auth.Secret)

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with the shared middleware stack and
// the unified JSON error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
