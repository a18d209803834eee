package task

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

// Register registers assigned-task routes
func Register(g *echo.Group) {
	g.POST("", AssignTask)
	g.GET("/subject/:subject_id", ClinicianView)
	g.GET("/mine", SubjectView)
	g.PUT("/:id/status", UpdateStatus)
	g.DELETE("/:id", RemoveTask)
}

// AssignTask creates a task for a subject. Clinicians only, and only for
// subjects they hold an active link to.
func AssignTask(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, tasks, err := ectoinject.GetContext[*relationships.TaskService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := tasks.Assign(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// ClinicianView returns the caller's assignments for one subject
func ClinicianView(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, tasks, err := ectoinject.GetContext[*relationships.TaskService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := tasks.ClinicianView(ctx, userID, c.Param("subject_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

// SubjectView returns every task assigned to the caller
func SubjectView(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, tasks, err := ectoinject.GetContext[*relationships.TaskService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	views, err := tasks.SubjectView(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, views)
}

// UpdateStatus records the caller's progress on their own task
func UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.UpdateTaskStatusRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, tasks, err := ectoinject.GetContext[*relationships.TaskService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := tasks.UpdateStatus(ctx, userID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// RemoveTask deletes an assignment the caller created
func RemoveTask(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, tasks, err := ectoinject.GetContext[*relationships.TaskService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := tasks.Remove(ctx, userID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
