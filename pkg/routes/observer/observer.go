package observer

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	appctx "github.com/fernhealth/fern/pkg/context"
	"github.com/fernhealth/fern/pkg/reports"
)

// Register registers observer-facing report routes
func Register(g *echo.Group) {
	g.GET("/report/:subject_id", GetReport)
	g.GET("/alerts", ListAlerts)
	g.GET("/alerts/summary", GetAlertSummary)
}

// GetReport computes a linked subject's dashboard for the caller. Rejected
// before any data is read when no approved link exists.
func GetReport(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)
	subjectID := c.Param("subject_id")

	days := 0
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid days")
		}
		days = parsed
	}

	ctx, service, err := ectoinject.GetContext[*reports.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := service.ComputeObserverReport(ctx, userID, subjectID, days)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}

// ListAlerts evaluates alerts across every subject linked to the caller
func ListAlerts(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, service, err := ectoinject.GetContext[*reports.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	alerts, err := service.ObserverAlerts(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alerts)
}

// GetAlertSummary returns the severity and type breakdown of the caller's
// alert feed
func GetAlertSummary(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, service, err := ectoinject.GetContext[*reports.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	summary, err := service.ObserverAlertsSummary(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}
