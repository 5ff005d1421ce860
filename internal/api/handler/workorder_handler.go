package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/workdesk/request-tracker/internal/api/metrics"
	"github.com/workdesk/request-tracker/internal/core/domain"
	"github.com/workdesk/request-tracker/internal/core/ports"
)

const headerIdempotencyKey = "Idempotency-Key"

// WorkOrderHandler serves the /tasks routes.
type WorkOrderHandler struct {
	service ports.WorkOrderService
}

func NewWorkOrderHandler(service ports.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{service: service}
}

// Create handles POST /tasks.
//
// @Summary      Create a task (admin only)
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Replays the original task when repeated"
// @Param        body             body      createTaskRequest  true   "Task"
// @Success      201              {object}  createdResponse
// @Success      200              {object}  createdResponse
// @Failure      400              {object}  map[string]string
// @Failure      403              {object}  map[string]string
// @Failure      409              {object}  map[string]string
// @Router       /tasks [post]
func (h *WorkOrderHandler) Create(c echo.Context) error {
	caller, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req createTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.Create(c.Request().Context(), caller, ports.CreateWorkOrderInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey)),
	})
	if err != nil {
		return err
	}

	metrics.TasksCreatedTotal.
		WithLabelValues(string(result.Order.Priority), strconv.FormatBool(result.AlreadyExisted)).
		Inc()

	if result.AlreadyExisted {
		return c.JSON(http.StatusOK, createdResponse{ID: result.Order.ID, Message: "Task already created"})
	}
	return c.JSON(http.StatusCreated, createdResponse{ID: result.Order.ID, Message: "Task created"})
}

// List handles GET /tasks and GET /tasks/filter.
//
// @Summary      List visible tasks
// @Description  Admins see every task, agents only their own.
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "open | in_progress | done"
// @Param        priority  query     string  false  "low | mid | high"
// @Param        search    query     string  false  "Substring of title or description"
// @Param        sort      query     string  false  "updated_at | created_at | priority"
// @Success      200       {array}   domain.WorkOrder
// @Failure      400       {object}  map[string]string
// @Router       /tasks [get]
// @Router       /tasks/filter [get]
func (h *WorkOrderHandler) List(c echo.Context) error {
	return h.list(c, ports.ListWorkOrdersInput{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
		Search:   c.QueryParam("search"),
		Sort:     c.QueryParam("sort"),
	})
}

// Search handles GET /tasks/search?q=.
//
// @Summary      Search visible tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  true  "Substring of title or description"
// @Success      200  {array}   domain.WorkOrder
// @Failure      400  {object}  map[string]string
// @Router       /tasks/search [get]
func (h *WorkOrderHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return fmt.Errorf("%w: search query is required", domain.ErrValidation)
	}
	return h.list(c, ports.ListWorkOrdersInput{Search: q})
}

// Sort handles GET /tasks/sort/:field.
//
// @Summary      List visible tasks in a given order
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        field  path      string  true  "updated_at | created_at | priority"
// @Success      200    {array}   domain.WorkOrder
// @Failure      400    {object}  map[string]string
// @Router       /tasks/sort/{field} [get]
func (h *WorkOrderHandler) Sort(c echo.Context) error {
	field := c.Param("field")
	if field == "" {
		return fmt.Errorf("%w: invalid sort field", domain.ErrValidation)
	}
	return h.list(c, ports.ListWorkOrdersInput{Sort: field})
}

func (h *WorkOrderHandler) list(c echo.Context, in ports.ListWorkOrdersInput) error {
	caller, err := ctxClaims(c)
	if err != nil {
		return err
	}
	orders, err := h.service.List(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []*domain.WorkOrder{}
	}
	return c.JSON(http.StatusOK, orders)
}

// Get handles GET /tasks/:id.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  domain.WorkOrder
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *WorkOrderHandler) Get(c echo.Context) error {
	caller, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.service.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateStatus handles PUT /tasks/:id/status.
//
// @Summary      Move a task to its next status
// @Description  Only the assigned user may change status: open -> in_progress -> done.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Task ID"
// @Param        body  body      statusRequest  true  "Target status"
// @Success      200   {object}  taskResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /tasks/{id}/status [put]
func (h *WorkOrderHandler) UpdateStatus(c echo.Context) error {
	caller, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.service.Transition(c.Request().Context(), caller, id, req.Status)
	if err != nil {
		return err
	}
	metrics.TaskTransitionsTotal.WithLabelValues(string(order.Status)).Inc()

	return c.JSON(http.StatusOK, taskResponse{Message: "Task status updated", Task: order})
}

// Assign handles PUT /tasks/:id/assign.
//
// @Summary      Assign or unassign a task (admin only)
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Task ID"
// @Param        body  body      assignRequest  true  "User ID, or null to clear"
// @Success      200   {object}  taskResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id}/assign [put]
func (h *WorkOrderHandler) Assign(c echo.Context) error {
	caller, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}
	if req.AssignedTo != nil && *req.AssignedTo < 0 {
		return fmt.Errorf("%w: assigned_to must be a user id", domain.ErrValidation)
	}

	order, err := h.service.Assign(c.Request().Context(), caller, id, req.AssignedTo)
	if err != nil {
		return err
	}
	metrics.TaskAssignmentsTotal.Inc()

	return c.JSON(http.StatusOK, taskResponse{Message: "Task assignment updated", Task: order})
}
