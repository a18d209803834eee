package person

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fernhealth/fern/internal/repositories/trackedperson"
	appctx "github.com/fernhealth/fern/pkg/context"
	"github.com/fernhealth/fern/pkg/models"
)

var validate = validator.New()

// Register registers person routes
func Register(g *echo.Group) {
	g.POST("", CreatePerson)
	g.GET("/me", GetMe)
	g.PUT("/me", UpdateProfile)
}

// CreatePerson registers a new tracked person or observer
func CreatePerson(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateTrackedPersonRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*trackedperson.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// GetMe returns the authenticated person's record
func GetMe(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}

	ctx, repo, err := ectoinject.GetContext[*trackedperson.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	person, err := repo.Get(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, person)
}

// UpdateProfile mutates the onboarding fields of the authenticated person
func UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*trackedperson.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.UpdateProfile(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}
