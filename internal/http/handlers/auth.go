package handlers

import (
	"net/http"

	"twopc_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Wallet   string `json:"wallet"`
	Name     string `json:"name"`
	Referrer string `json:"referrer"`
}

// Register creates a wallet and attaches its sponsor
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	w, err := h.Referrals.Register(c.Request.Context(), service.RegisterInput{
		Wallet:   req.Wallet,
		Name:     req.Name,
		Referrer: req.Referrer,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": w})
}

// LoginRequest carries an optional personal_sign proof of wallet ownership
type LoginRequest struct {
	Wallet    string `json:"wallet"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// Login reports whether the wallet is registered and returns its role and
// a session token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	info, err := h.Referrals.Login(c.Request.Context(), service.LoginInput{
		Wallet:    req.Wallet,
		Message:   req.Message,
		Signature: req.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}
