package dashboard

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	appctx "github.com/fernhealth/fern/pkg/context"
	"github.com/fernhealth/fern/pkg/reports"
)

// Register registers the self-serve dashboard route
func Register(g *echo.Group) {
	g.GET("", GetDashboard)
}

// GetDashboard computes the caller's own dashboard over a 7 or 30 day window
func GetDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	days, err := parseDays(c)
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[*reports.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	dashboard, err := service.ComputeDashboard(ctx, userID, days)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dashboard)
}

// parseDays reads the days query param; zero lets the service default it.
func parseDays(c echo.Context) (int, error) {
	raw := c.QueryParam("days")
	if raw == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "invalid days")
	}
	return days, nil
}
