package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/outings/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/outings/:id", "204"))
	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/outings/"+id, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/outings/:id", "204"))
	assert.Equal(t, 2.0, after-before)
}

func TestDecisionCounter(t *testing.T) {
	before := testutil.ToFloat64(decisions.WithLabelValues("accepted", "conflict"))
	Decision("accepted", "conflict")
	assert.Equal(t, 1.0, testutil.ToFloat64(decisions.WithLabelValues("accepted", "conflict"))-before)
}

func TestHandlerServesRegistry(t *testing.T) {
	OutingCreated()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "outings_lifecycle_outings_created_total")
}
