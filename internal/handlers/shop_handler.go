package handlers

import (
	"net/http"

	"collection-backend/internal/apperr"
	"collection-backend/internal/models"
	"collection-backend/internal/services"
	"collection-backend/pkg/utils"

	"github.com/shopspring/decimal"
)

type ShopHandler struct {
	Service *services.LedgerService
}

func NewShopHandler(s *services.LedgerService) *ShopHandler {
	return &ShopHandler{Service: s}
}

type balanceResponse struct {
	ShopID  int64           `json:"shop_id"`
	Balance decimal.Decimal `json:"balance"`
}

func (h *ShopHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	filter := models.ShopFilter{
		Zone:           r.URL.Query().Get("zone"),
		IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
		Limit:          limit,
		Offset:         offset,
	}

	shops, err := h.Service.ListShops(r.Context(), caller, filter)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, shops)
}

func (h *ShopHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.CreateShopRequest
	if err := decodeAndValidate(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	shop, err := h.Service.CreateShop(r.Context(), caller, &req)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, shop)
}

func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	shop, err := h.Service.GetShop(r.Context(), id)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	if shop.IsDeleted() && !caller.IsAdmin() {
		utils.Error(w, r, apperr.NotFound("shop", id))
		return
	}
	utils.JSON(w, http.StatusOK, shop)
}

func (h *ShopHandler) DeleteShop(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	if err := h.Service.DeleteShop(r.Context(), caller, id); err != nil {
		utils.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyBalanceChange applies a manual delta or override to a shop's balance.
func (h *ShopHandler) ApplyBalanceChange(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	var req models.BalanceChangeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	if req.Amount == nil {
		utils.Error(w, r, apperr.Validation(apperr.CodeInvalidAmount, "amount", "amount is required"))
		return
	}

	change := services.Delta(*req.Amount)
	if req.Mode == "override" {
		change = services.Override(*req.Amount)
	}

	balance, err := h.Service.ApplyBalanceChange(r.Context(), caller, id, change, req.Note)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, balanceResponse{ShopID: id, Balance: balance})
}

func (h *ShopHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	entries, err := h.Service.AuditTrail(r.Context(), caller, id, limit, offset)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, entries)
}

func (h *ShopHandler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, r, err)
		return
	}

	result, err := h.Service.CheckIntegrity(r.Context(), caller, id)
	if err != nil {
		utils.Error(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}
