package handlers

import (
	"net/http"

	"collection-backend/internal/apperr"
	"collection-backend/internal/models"
	"collection-backend/internal/services"
	"collection-backend/pkg/utils"
)

type AuthHandler struct {
	Service *services.EmployeeService
}

func NewAuthHandler(s *services.EmployeeService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Login handles employee authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		utils.Error(w, r, err)
		return
	}

	authResp, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Kind == apperr.KindUnauthorized {
			utils.ErrorJSON(w, http.StatusUnauthorized, e.Code, e.Message)
			return
		}
		utils.Error(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, authResp)
}
