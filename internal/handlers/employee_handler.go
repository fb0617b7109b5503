package handlers

import (
	"net/http"

	"collection-backend/internal/models"
	"collection-backend/internal/services"
	"collection-backend/internal/timeutil"
	"collection-backend/pkg/utils"

	"github.com/shopspring/decimal"
)

type EmployeeHandler struct {
	Service  *services.EmployeeService
	Handover *services.HandoverService
}

func NewEmployeeHandler(s *services.EmployeeService, handover *services.HandoverService) *EmployeeHandler {
	return &EmployeeHandler{Service: s, Handover: handover}
}

type cashInBagResponse struct {
	EmployeeID int64           `json:"employee_id"`
	Date       string          `json:"date"`
	CashInBag  decimal.Decimal `json:"cash_in_bag"`
}

func (h *EmployeeHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	employees, err := h.Service.ListEmployees(r.Context(), caller)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, employees)
}

func (h *EmployeeHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.CreateEmployeeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	employee, err := h.Service.CreateEmployee(r.Context(), caller, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, employee)
}

// SetStatus activates or deactivates an employee.
func (h *EmployeeHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	employeeID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	var req models.SetEmployeeStatusRequest
	if err := decodeAndValidate(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	employee, err := h.Service.SetActive(r.Context(), caller, employeeID, *req.IsActive)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, employee)
}

// CashInBag reports unverified cash held by an employee. date defaults to today (IST).
func (h *EmployeeHandler) CashInBag(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	employeeID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = timeutil.Today()
	}

	total, err := h.Handover.CashInBag(r.Context(), caller, employeeID, date)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, cashInBagResponse{EmployeeID: employeeID, Date: date, CashInBag: total})
}

// VerifyHandover moves the employee's unverified cash into office custody.
func (h *EmployeeHandler) VerifyHandover(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	employeeID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	result, err := h.Handover.VerifyHandover(r.Context(), caller, employeeID)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}
