package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	err := NotAuthorized("no link between %s and %s", "a", "b")

	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUpstreamWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream(cause, "relapse store unavailable")

	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NotAuthorized("nope"), http.StatusForbidden},
		{DuplicateLink("already linked"), http.StatusConflict},
		{InvalidWindow("bad window"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Upstream(errors.New("down"), "store down"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			httpErr := ToHTTPError(tt.err)
			assert.Equal(t, tt.status, httperror.GetStatusCode(httpErr))
		})
	}
}

func TestWrappedDomainErrorStillMatches(t *testing.T) {
	err := fmt.Errorf("computing report: %w", NotAuthorized("no approved link"))

	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(ToHTTPError(err)))
}
