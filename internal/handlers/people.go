package handlers

import (
	"log/slog"
	"net/http"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
)

// CustomersHandler handles customer requests
type CustomersHandler struct {
	customers *client.CustomersClient
}

func NewCustomersHandler(customers *client.CustomersClient) *CustomersHandler {
	return &CustomersHandler{customers: customers}
}

// List handles GET /api/v1/customers
func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	var filters models.CustomerFilters
	if err := decodeFilters(r, &filters); err != nil {
		writeDecodeError(w, err)
		return
	}

	env, err := h.customers.List(r.Context(), filters)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Get handles GET /api/v1/customers/{id}
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	env, err := h.customers.Get(r.Context(), id)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Stats handles GET /api/v1/customers/stats
func (h *CustomersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	env, err := h.customers.Stats(r.Context())
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Create handles POST /api/v1/customers
func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.CustomerInput
	if !decodeJSON(w, r, &input) {
		return
	}

	env, err := h.customers.Create(r.Context(), input)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, env)
}

// Update handles PUT /api/v1/customers/{id}
func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input models.CustomerUpdate
	if !decodeJSON(w, r, &input) {
		return
	}

	env, err := h.customers.Update(r.Context(), id, input)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Delete handles DELETE /api/v1/customers/{id}
func (h *CustomersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.customers.Delete(r.Context(), id); err != nil {
		writeClientError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmployeesHandler handles staff account requests, backed by /users
type EmployeesHandler struct {
	employees *client.EmployeesClient
}

func NewEmployeesHandler(employees *client.EmployeesClient) *EmployeesHandler {
	return &EmployeesHandler{employees: employees}
}

// List handles GET /api/v1/employees
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	var filters models.EmployeeFilters
	if err := decodeFilters(r, &filters); err != nil {
		writeDecodeError(w, err)
		return
	}

	env, err := h.employees.List(r.Context(), filters)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Create handles POST /api/v1/employees
func (h *EmployeesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.EmployeeInput
	if !decodeJSON(w, r, &input) {
		return
	}

	env, err := h.employees.Create(r.Context(), input)
	if err != nil {
		writeClientError(w, r, err)
		return
	}

	slog.Info("Employee created", "employee_id", env.Data.ID.String(), "role", env.Data.Role)
	writeJSONResponse(w, http.StatusCreated, env)
}

// Update handles PUT /api/v1/employees/{id}
func (h *EmployeesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input models.EmployeeUpdate
	if !decodeJSON(w, r, &input) {
		return
	}

	env, err := h.employees.Update(r.Context(), id, input)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// UpdateStatus handles PATCH /api/v1/employees/{id}/status
func (h *EmployeesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body models.EmployeeStatusUpdate
	if !decodeJSON(w, r, &body) {
		return
	}

	env, err := h.employees.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeClientError(w, r, err)
		return
	}

	slog.Info("Employee status updated", "employee_id", id.String(), "status", body.Status)
	writeJSONResponse(w, http.StatusOK, env)
}

// RecordLogin handles POST /api/v1/employees/{id}/login
func (h *EmployeesHandler) RecordLogin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	env, err := h.employees.RecordLogin(r.Context(), id)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Delete handles DELETE /api/v1/employees/{id}
func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.employees.Delete(r.Context(), id); err != nil {
		writeClientError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
