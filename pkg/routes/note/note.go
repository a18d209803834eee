package note

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

// Register registers clinical note routes
func Register(g *echo.Group) {
	g.POST("", CreateNote)
	g.PUT("/:id", UpdateNote)
	g.GET("/subject/:subject_id", ClinicianView)
	g.GET("/mine", SubjectView)
}

// CreateNote authors a session note. Clinicians only, and only for subjects
// they hold an active link to.
func CreateNote(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.CreateClinicalNoteRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, notes, err := ectoinject.GetContext[*relationships.NoteService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := notes.Create(ctx, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdateNote rewrites a note the caller authored
func UpdateNote(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	var req models.CreateClinicalNoteRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, notes, err := ectoinject.GetContext[*relationships.NoteService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := notes.Update(ctx, userID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// ClinicianView returns the caller's full notes for one subject, private
// segment included
func ClinicianView(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, notes, err := ectoinject.GetContext[*relationships.NoteService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := notes.ClinicianView(ctx, userID, c.Param("subject_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

// SubjectView returns the redacted projection of every note written about the
// caller
func SubjectView(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appctx.GetUserID(ctx)

	ctx, notes, err := ectoinject.GetContext[*relationships.NoteService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	views, err := notes.SubjectView(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, views)
}
