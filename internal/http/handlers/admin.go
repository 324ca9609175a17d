package handlers

import (
	"net/http"

	"twopc_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TokenSendRequest struct {
	Title   string          `json:"title"`
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	TxHash  string          `json:"txHash"`
}

// TokenSend logs a token transfer made by the admin on chain
func (h *Handler) TokenSend(c *gin.Context) {
	var req TokenSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	res, err := h.Admin.RecordTokenSend(c.Request.Context(), adminWallet(c), service.TokenSendInput{
		Title:   req.Title,
		Address: req.Address,
		Amount:  req.Amount.String(),
		TxHash:  req.TxHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// TokenSends lists logged token transfers (admin)
func (h *Handler) TokenSends(c *gin.Context) {
	sends, err := h.Admin.ListTokenSends(c.Request.Context(), queryLimit(c, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": sends})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.Admin.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Audit returns recent audit entries, optionally for ?wallet=
func (h *Handler) Audit(c *gin.Context) {
	logs, err := h.Admin.RecentAudit(c.Request.Context(), c.Query("wallet"), queryLimit(c, 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
