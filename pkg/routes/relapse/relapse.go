package relapse

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/fernhealth/fern/internal/repositories/relapse"
	appctx "github.com/fernhealth/fern/pkg/context"
	"github.com/fernhealth/fern/pkg/events"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/redis"
)

// Register registers relapse report routes
func Register(g *echo.Group) {
	g.GET("", ListRelapses)
	g.POST("", ReportRelapse)
}

// ReportRelapse records a relapse and resets the caller's clean date. The
// write commits before the event or cache invalidation run; both of those are
// best-effort.
func ReportRelapse(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.ReportRelapseRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*relapse.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	reported, err := repo.Report(ctx, userID, req)
	if err != nil {
		return err
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		emitter.EmitRelapseReported(ctx, reported)
	}
	if ctx, cache, err := ectoinject.GetContext[*redis.DashboardCache](ctx); err == nil {
		cache.Invalidate(ctx, userID, models.DateOf(time.Now()))
	}

	return c.JSON(http.StatusCreated, reported)
}

// ListRelapses lists the caller's relapse history, most recent first
func ListRelapses(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*relapse.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	relapses, err := repo.List(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, relapses)
}
