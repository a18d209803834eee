package link

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appctx "github.com/fernhealth/fern/pkg/context"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/relationships"
)

var validate = validator.New()

// Register registers observer-link routes
func Register(g *echo.Group) {
	g.POST("/request", RequestLink)
	g.POST("/respond", RespondToLink)
	g.POST("/direct", CreateDirectLink)
	g.DELETE("/:observer_id", Unlink)
	g.GET("/requests", ListPendingRequests)
	g.GET("/subjects", ListLinkedSubjects)
	g.GET("/status/:other_id", GetRelationship)
}

// RequestLink starts the consent protocol: a family observer asks to follow a
// subject by email
func RequestLink(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.RequestLinkRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, manager, err := ectoinject.GetContext[*relationships.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	request, err := manager.RequestLink(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, request)
}

// RespondToLink approves or rejects a pending request. Only the subject may
// respond, and the decision is final for that request.
func RespondToLink(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.RespondToLinkRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, manager, err := ectoinject.GetContext[*relationships.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	request, err := manager.RespondToLink(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, request)
}

// CreateDirectLink links a clinician to a patient without the consent round trip
func CreateDirectLink(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.CreateDirectLinkRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, manager, err := ectoinject.GetContext[*relationships.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := manager.CreateDirectLink(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// Unlink revokes an active link between the caller (subject) and an observer
func Unlink(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, manager, err := ectoinject.GetContext[*relationships.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := manager.Unlink(ctx, userID, c.Param("observer_id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// ListPendingRequests lists consent requests waiting on the caller
func ListPendingRequests(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, manager, err := ectoinject.GetContext[*relationships.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	requests, err := manager.PendingRequests(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, requests)
}

// ListLinkedSubjects lists the subjects the caller actively observes
func ListLinkedSubjects(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, manager, err := ectoinject.GetContext[*relationships.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	links, err := manager.LinkedSubjects(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, links)
}

// GetRelationship reports the relationship state between the caller and
// another person
func GetRelationship(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, manager, err := ectoinject.GetContext[*relationships.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	status, err := manager.GetRelationship(ctx, userID, c.Param("other_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]models.RelationshipStatus{"status": status})
}
