package handlers

import (
	"net/http"

	"collection-backend/internal/apperr"
	"collection-backend/internal/models"
	"collection-backend/internal/services"
	"collection-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type ReconciliationHandler struct {
	Service *services.ReconciliationService
}

func NewReconciliationHandler(s *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{Service: s}
}

// Verify records the cash an employee declared for a date.
func (h *ReconciliationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.VerifyReconciliationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	rec, err := h.Service.Verify(r.Context(), caller, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

// VerifyByID re-verifies an existing record.
func (h *ReconciliationHandler) VerifyByID(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	var req models.OverrideReconciliationRequest
	if err := decode(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	rec, err := h.Service.VerifyByID(r.Context(), caller, id, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

func (h *ReconciliationHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	employeeID, err := pathID(r, "employeeID")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	rec, err := h.Service.Get(r.Context(), caller, employeeID, mux.Vars(r)["date"])
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

func (h *ReconciliationHandler) ListByDate(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		utils.Error(w, r, apperr.Validation(apperr.CodeInvalidDate, "date", "date parameter is required"))
		return
	}

	records, err := h.Service.ListByDate(r.Context(), caller, date)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, records)
}

// CloseDay closes every reconciliation for the given date.
func (h *ReconciliationHandler) CloseDay(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.CloseDayRequest
	if err := decodeAndValidate(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	result, err := h.Service.CloseDay(r.Context(), caller, req.Date)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}
