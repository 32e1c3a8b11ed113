package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agentworks/casestudio/internal/gita"
	"github.com/agentworks/casestudio/internal/store"
)

// CaseStudiesHandler serves the catalog. Listing and detail are public;
// curation requires the admin token.
type CaseStudiesHandler struct {
	Store *store.Store
}

func (h *CaseStudiesHandler) Register(g *echo.Group, secret []byte) {
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PATCH("/:id/curation", func(c echo.Context) error {
		return withAuth(h.setCuration, secret)(c)
	})
}

func (h *CaseStudiesHandler) list(c echo.Context) error {
	// ?all=true includes hidden documents; only meaningful for the
	// admin UI, harmless otherwise since curation stays protected.
	displayedOnly := c.QueryParam("all") != "true"
	items, err := h.Store.ListCaseStudies(c.Request().Context(), displayedOnly)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []store.CaseStudySummary{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CaseStudiesHandler) get(c echo.Context) error {
	doc, found, err := h.Store.GetCaseStudy(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "case study not found")
	}
	return c.JSON(http.StatusOK, doc)
}

type curationRequest struct {
	Display      bool `json:"display"`
	Featured     bool `json:"featured"`
	DisplayOrder *int `json:"display_order"`
}

func (h *CaseStudiesHandler) setCuration(c echo.Context) error {
	var req curationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DisplayOrder != nil && *req.DisplayOrder < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "display_order must be non-negative")
	}
	err := h.Store.SetCuration(c.Request().Context(), c.Param("id"), req.Display, req.Featured, req.DisplayOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "case study not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":            c.Param("id"),
		"display":       req.Display,
		"featured":      req.Featured,
		"display_order": req.DisplayOrder,
	})
}

// OpsHandler exposes operator-only views over the stored data.
type OpsHandler struct {
	Store *store.Store
}

func (h *OpsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("/corpus", h.corpusStats)
	g.GET("/verses", h.verses)
}

func (h *OpsHandler) corpusStats(c echo.Context) error {
	stats, err := h.Store.CorpusStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

// verses looks up corpus verses by theme tag or keyword for spot checks
// after a corpus load.
func (h *OpsHandler) verses(c echo.Context) error {
	ctx := c.Request().Context()
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	var (
		verses []gita.Verse
		err    error
	)
	switch {
	case c.QueryParam("theme") != "":
		verses, err = h.Store.VersesByTheme(ctx, c.QueryParam("theme"), limit)
	case c.QueryParam("q") != "":
		verses, err = h.Store.VersesByKeywords(ctx, strings.Fields(c.QueryParam("q")), limit)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "theme or q query parameter required")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if verses == nil {
		verses = []gita.Verse{}
	}
	return c.JSON(http.StatusOK, verses)
}
