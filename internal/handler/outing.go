package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/outing-coordinator/internal/model"
	"github.com/iliyamo/outing-coordinator/internal/service"
)

// OutingHandler exposes the outing and interest request endpoints.  Every
// method assumes middleware.RequireIdentity has already run and passes the
// caller id explicitly to the lifecycle service.
type OutingHandler struct {
	Lifecycle *service.Lifecycle
}

// NewOutingHandler panics if lifecycle is nil.
func NewOutingHandler(lifecycle *service.Lifecycle) *OutingHandler {
	if lifecycle == nil {
		panic("nil lifecycle passed to NewOutingHandler")
	}
	return &OutingHandler{Lifecycle: lifecycle}
}

type createOutingRequest struct {
	Title        string  `json:"title"`
	ActivityType string  `json:"activity_type"`
	DateTime     string  `json:"date_time"`
	Location     *string `json:"location"`
}

type createInterestRequest struct {
	OutingID string `json:"outing_id"`
}

type decideRequest struct {
	Status string `json:"status"`
}

// ListOutings handles GET /outings.  The result is always a JSON array.
func (h *OutingHandler) ListOutings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Lifecycle.ListVisibleOutings(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if out == nil {
		out = []model.Outing{}
	}
	return c.JSON(http.StatusOK, out)
}

// CreateOuting handles POST /outings and returns the stored outing.
func (h *OutingHandler) CreateOuting(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var body createOutingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	o, err := h.Lifecycle.CreateOuting(c.Request().Context(), userID, service.CreateOutingInput{
		Title:        body.Title,
		ActivityType: body.ActivityType,
		DateTime:     body.DateTime,
		Location:     body.Location,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// CloseOuting handles PATCH /outings/:id/close.
func (h *OutingHandler) CloseOuting(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Lifecycle.CloseOuting(c.Request().Context(), userID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Outing closed successfully"})
}

// ListOutingInterestRequests handles GET /outings/:id/interest_requests
// for the host, oldest request first.
func (h *OutingHandler) ListOutingInterestRequests(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Lifecycle.ListInterestRequestsForOuting(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if out == nil {
		out = []model.InterestRequest{}
	}
	return c.JSON(http.StatusOK, out)
}

// CreateInterestRequest handles POST /interest_requests.
func (h *OutingHandler) CreateInterestRequest(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var body createInterestRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ir, err := h.Lifecycle.CreateInterestRequest(c.Request().Context(), userID, body.OutingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":                ir.ID,
		"outing_id":         ir.OutingID,
		"requester_user_id": ir.RequesterUserID,
		"status":            ir.Status,
	})
}

// ListMyInterestRequests handles GET /interest_requests: the caller's own
// requests with their outing details, newest first.
func (h *OutingHandler) ListMyInterestRequests(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Lifecycle.ListMyInterestRequests(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if out == nil {
		out = []model.InterestRequestDetail{}
	}
	return c.JSON(http.StatusOK, out)
}

// DecideInterestRequest handles PATCH /interest_requests/:id with a body
// of {"status": "accepted"|"rejected"}.
func (h *OutingHandler) DecideInterestRequest(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var body decideRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	id := c.Param("id")
	status := model.RequestStatus(body.Status)
	if err := h.Lifecycle.DecideInterestRequest(c.Request().Context(), userID, id, status); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}
