package router

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/newsmaker-md/content-pipeline/internal/apperr"
	"github.com/newsmaker-md/content-pipeline/internal/archive"
	"github.com/newsmaker-md/content-pipeline/internal/export"
	"github.com/newsmaker-md/content-pipeline/internal/generate"
	"github.com/newsmaker-md/content-pipeline/internal/scrape"
)

const defaultScrapeLimit = 5

// ContentRouter binds the pipeline's HTTP surface onto an echo instance.
type ContentRouter struct {
	e       *echo.Echo
	dir     *archive.Dir
	scraper *scrape.Scraper
	gen     *generate.Service
}

func NewContentRouter(e *echo.Echo, dir *archive.Dir, scraper *scrape.Scraper, gen *generate.Service) *ContentRouter {
	return &ContentRouter{e: e, dir: dir, scraper: scraper, gen: gen}
}

func (r *ContentRouter) Bind() {
	r.e.GET("/articles", r.listArticles)
	r.e.POST("/scrape", r.scrape)
	r.e.POST("/articles/:id/generate/image", r.generateImage)
	r.e.POST("/articles/:id/generate/text", r.generateText)
	r.e.GET("/export.xlsx", r.exportExcel)
}

func (r *ContentRouter) listArticles(c echo.Context) error {
	return c.JSON(http.StatusOK, r.dir.Summaries())
}

func (r *ContentRouter) scrape(c echo.Context) error {
	limit := defaultScrapeLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return apperr.NewValidation("limit must be a positive number")
		}
		limit = n
	}

	saved, err := r.scraper.Run(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"saved": len(saved),
		"posts": saved,
	})
}

func (r *ContentRouter) generateImage(c echo.Context) error {
	force := c.QueryParam("force") == "true"

	out, err := r.gen.GenerateImage(c.Request().Context(), c.Param("id"), force)
	if err != nil {
		return err
	}
	if out == nil {
		return c.JSON(http.StatusOK, map[string]any{"skipped": true})
	}
	return c.JSON(http.StatusOK, out)
}

func (r *ContentRouter) generateText(c echo.Context) error {
	force := c.QueryParam("force") == "true"

	out, err := r.gen.GenerateText(c.Request().Context(), c.Param("id"), force)
	if err != nil {
		return err
	}
	if out == nil {
		return c.JSON(http.StatusOK, map[string]any{"skipped": true})
	}
	return c.JSON(http.StatusOK, out)
}

func (r *ContentRouter) exportExcel(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="posts.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)
	return export.Write(r.dir, c.Response())
}
