package handlers

import (
	"net/http"

	"collection-backend/internal/models"
	"collection-backend/internal/services"
	"collection-backend/pkg/utils"
)

type CollectionHandler struct {
	Service *services.CollectionService
}

func NewCollectionHandler(s *services.CollectionService) *CollectionHandler {
	return &CollectionHandler{Service: s}
}

// RecordCollection records a field collection. employee_id defaults to the caller.
func (h *CollectionHandler) RecordCollection(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.RecordCollectionRequest
	if err := decode(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}
	if req.EmployeeID == 0 {
		req.EmployeeID = caller.EmployeeID
	}
	if err := validateStruct(&req); err != nil {
		utils.Error(w, r, err)
		return
	}

	txn, err := h.Service.RecordCollection(r.Context(), caller, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, txn)
}

func (h *CollectionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var filter models.TransactionFilter
	var err error
	if filter.EmployeeID, err = queryInt64(r, "employee_id"); err != nil {
		utils.Error(w, r, err)
		return
	}
	if filter.ShopID, err = queryInt64(r, "shop_id"); err != nil {
		utils.Error(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		utils.Error(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		utils.Error(w, r, err)
		return
	}
	q := r.URL.Query()
	filter.Date = q.Get("date")
	filter.PaymentMode = models.PaymentMode(q.Get("payment_mode"))
	filter.UnverifiedOnly = q.Get("unverified") == "true"

	txns, err := h.Service.ListTransactions(r.Context(), caller, filter)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, txns)
}
