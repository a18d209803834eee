package mood

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fernhealth/fern/internal/repositories/moodlog"
	appctx "github.com/fernhealth/fern/pkg/context"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/trend"
)

var validate = validator.New()

// Register registers mood log routes
func Register(g *echo.Group) {
	g.GET("", ListMoods)
	g.POST("", UpsertMood)
	g.GET("/stats", GetStats)
}

// UpsertMood records (or replaces) the caller's mood entry for a day
func UpsertMood(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.UpsertMoodLogRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*moodlog.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	log, err := repo.Upsert(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, log)
}

// ListMoods lists the caller's mood logs over a date range (defaults to the
// last 30 days)
func ListMoods(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	from, to, err := parseRange(c, 30)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*moodlog.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	logs, err := repo.ListRange(ctx, userID, from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, logs)
}

// GetStats computes the mood trend summary over a date range
func GetStats(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	from, to, err := parseRange(c, 30)
	if err != nil {
		return err
	}

	topTags := trend.DefaultTopTags
	if raw := c.QueryParam("top_tags"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid top_tags")
		}
		topTags = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*moodlog.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	logs, err := repo.ListRange(ctx, userID, from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, trend.Analyze(logs, topTags))
}

func parseRange(c echo.Context, defaultDays int) (models.Date, models.Date, error) {
	to := models.DateOf(time.Now())
	from := to.AddDays(-(defaultDays - 1))

	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			return models.Date{}, models.Date{}, httperror.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		from = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			return models.Date{}, models.Date{}, httperror.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		to = parsed
	}
	if to.Before(from) {
		return models.Date{}, models.Date{}, httperror.NewHTTPError(http.StatusBadRequest, "date range is inverted")
	}
	return from, to, nil
}
