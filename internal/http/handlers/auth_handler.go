package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/http/response"
	"github.com/slotwise/schedulr/internal/service"
)

type AuthHandler struct {
	hosts service.HostService
}

func NewAuthHandler(hosts service.HostService) *AuthHandler {
	return &AuthHandler{hosts: hosts}
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	user, token, err := h.hosts.Register(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	user, token, err := h.hosts.Login(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}
