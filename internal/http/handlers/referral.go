package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListUsers returns registered wallets (admin)
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Referrals.ListUsers(c.Request.Context(), queryLimit(c, 100), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ReferralTree returns the nested downline of ?wallet=
func (h *Handler) ReferralTree(c *gin.Context) {
	tree, err := h.Referrals.BuildTree(c.Request.Context(), c.Query("wallet"), queryInt(c, "depth", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// ReferralEarnings returns commission totals and records of ?wallet=
func (h *Handler) ReferralEarnings(c *gin.Context) {
	earnings, err := h.Commissions.Earnings(c.Request.Context(), c.Query("wallet"), queryLimit(c, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, earnings)
}

// ReferralSummary returns the network header of :wallet
func (h *Handler) ReferralSummary(c *gin.Context) {
	summary, err := h.Summaries.Summary(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// WalletTransactions is the commission log of ?wallet=
func (h *Handler) WalletTransactions(c *gin.Context) {
	earnings, err := h.Commissions.Earnings(c.Request.Context(), c.Query("wallet"), queryLimit(c, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": earnings.Records})
}
