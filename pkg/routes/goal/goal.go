package goal

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fernhealth/fern/internal/repositories/goal"
	appctx "github.com/fernhealth/fern/pkg/context"
	"github.com/fernhealth/fern/pkg/models"
)

var validate = validator.New()

// Register registers recovery goal routes
func Register(g *echo.Group) {
	g.GET("", ListGoals)
	g.POST("", CreateGoal)
	g.PUT("/:id", UpdateGoal)
}

// ListGoals lists the caller's goals
func ListGoals(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*goal.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	goals, err := repo.List(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, goals)
}

// CreateGoal creates an open goal
func CreateGoal(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.CreateGoalRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*goal.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdateGoal retitles or completes a goal
func UpdateGoal(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.UpdateGoalRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*goal.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.Update(ctx, userID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}
