package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is used by load balancers and monitoring to verify the service
// is running.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Healthz is the plain text probe kept for older deployments.
func Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
