package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/outing-coordinator/internal/logging"
	"github.com/iliyamo/outing-coordinator/internal/middleware"
	"github.com/iliyamo/outing-coordinator/internal/service"
)

var errNoIdentity = errors.New("missing user_id in context")

// getUserID returns the identity resolved by middleware.RequireIdentity.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get(middleware.ContextKeyUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", errNoIdentity
}

// respondError writes err as {"error": "..."} with the status its kind
// maps to.  Unknown errors are logged and reported as a bare 500.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, errNoIdentity):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing X-User-Id header"})
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrOutingClosed):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logging.Ctx(c.Request().Context()).Error().Err(err).
			Str(logging.FieldPath, c.Path()).
			Msg("request failed")
		return c.JSON(status, echo.Map{"error": http.StatusText(status)})
	}
	return c.JSON(status, echo.Map{"error": errorMessage(err)})
}

// errorMessage strips the sentinel prefix from validation errors so the
// client sees only the detail.
func errorMessage(err error) string {
	msg := err.Error()
	prefix := service.ErrValidation.Error() + ": "
	if errors.Is(err, service.ErrValidation) && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
