package habit

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fernhealth/fern/internal/repositories/habit"
	"github.com/fernhealth/fern/internal/repositories/habitlog"
	appctx "github.com/fernhealth/fern/pkg/context"
	"github.com/fernhealth/fern/pkg/models"
)

var validate = validator.New()

// Register registers habit and habit-log routes
func Register(g *echo.Group) {
	g.GET("", ListHabits)
	g.POST("", CreateHabit)
	g.GET("/history", GetHistory)
	g.GET("/:id", GetHabit)
	g.PUT("/:id", UpdateHabit)
	g.DELETE("/:id", DeactivateHabit)
	g.POST("/:id/logs", UpsertLog)
	g.GET("/:id/logs", ListLogs)
}

// ListHabits lists the caller's habits, active first
func ListHabits(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	includeInactive := c.QueryParam("include_inactive") == "true"

	ctx, repo, err := ectoinject.GetContext[*habit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	habits, err := repo.List(ctx, userID, includeInactive)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, habits)
}

// CreateHabit creates a new habit for the caller
func CreateHabit(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.CreateHabitRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*habit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// GetHabit gets one of the caller's habits by ID
func GetHabit(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*habit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := repo.Get(ctx, userID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

// UpdateHabit updates name, description, or active state
func UpdateHabit(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.UpdateHabitRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*habit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.Update(ctx, userID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// DeactivateHabit soft-deletes a habit; its logs stay attributable
func DeactivateHabit(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*habit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Deactivate(ctx, userID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// UpsertLog records (or replaces) a day's completion for a habit
func UpsertLog(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)
	habitID := c.Param("id")

	var req models.UpsertHabitLogRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, habits, err := ectoinject.GetContext[*habit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	// ownership check before writing
	if _, err := habits.Get(ctx, userID, habitID); err != nil {
		return err
	}

	ctx, logs, err := ectoinject.GetContext[*habitlog.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	log, err := logs.Upsert(ctx, userID, habitID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, log)
}

// ListLogs lists a habit's logs over a date range (defaults to the last 30 days)
func ListLogs(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)
	habitID := c.Param("id")

	from, to, err := parseRange(c, 30)
	if err != nil {
		return err
	}

	ctx, habits, err := ectoinject.GetContext[*habit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if _, err := habits.Get(ctx, userID, habitID); err != nil {
		return err
	}

	ctx, logs, err := ectoinject.GetContext[*habitlog.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := logs.ListRange(ctx, habitID, from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

// GetHistory aggregates completions per calendar date across all habits
func GetHistory(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	from, to, err := parseRange(c, 30)
	if err != nil {
		return err
	}

	ctx, logs, err := ectoinject.GetContext[*habitlog.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	history, err := logs.History(ctx, userID, from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, history)
}

// parseRange reads optional from/to query params, defaulting to a trailing
// window ending today.
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
