package handler

import "github.com/workdesk/request-tracker/internal/core/domain"

type createTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// assignRequest uses a pointer so {"assigned_to": null} clears the assignee.
type assignRequest struct {
	AssignedTo *int64 `json:"assigned_to"`
}

type taskResponse struct {
	Message string            `json:"message"`
	Task    *domain.WorkOrder `json:"task"`
}
