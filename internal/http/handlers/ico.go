package handlers

import (
	"net/http"
	"time"

	"twopc_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Amount fields accept JSON numbers or strings, as sent by the front-end.
type CreateStageRequest struct {
	Title       string          `json:"title"`
	PhaseIndex  *int64          `json:"phaseIndex"`
	Price       decimal.Decimal `json:"price"`
	TotalTokens decimal.Decimal `json:"totalTokens"`
	MinBuy      decimal.Decimal `json:"minBuy"`
	MaxBuy      decimal.Decimal `json:"maxBuy"`
	HardCap     decimal.Decimal `json:"hardCap"`
	Start       int64           `json:"start"` // unix seconds
	End         int64           `json:"end"`
	TxHash      string          `json:"txHash"`
}

// CreateStage mirrors a presale phase added on chain (admin)
func (h *Handler) CreateStage(c *gin.Context) {
	var req CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}
	ctx := c.Request.Context()

	// phases are appended on chain, so a missing index is the next one
	var phase int64
	if req.PhaseIndex != nil {
		phase = *req.PhaseIndex
	} else {
		stages, err := h.Ico.ListStages(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		phase = int64(len(stages))
	}

	stage, err := h.Ico.CreateStage(ctx, adminWallet(c), service.StageInput{
		Title:       req.Title,
		PhaseIndex:  phase,
		Price:       req.Price.String(),
		TotalTokens: req.TotalTokens.String(),
		MinBuy:      req.MinBuy.String(),
		MaxBuy:      req.MaxBuy.String(),
		HardCap:     req.HardCap.String(),
		StartAt:     time.Unix(req.Start, 0).UTC(),
		EndAt:       time.Unix(req.End, 0).UTC(),
		TxHash:      req.TxHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stage": stage})
}

func (h *Handler) AllStages(c *gin.Context) {
	stages, err := h.Ico.ListStages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

func (h *Handler) ActiveStages(c *gin.Context) {
	stages, err := h.Ico.ActiveStages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

type PurchaseRequest struct {
	Buyer    string          `json:"buyer"`
	PhaseID  int64           `json:"phaseId"`
	Tokens   decimal.Decimal `json:"tokens"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	TxHash   string          `json:"txHash"`
}

// PurchaseComplete records a confirmed presale buy and pays commissions
func (h *Handler) PurchaseComplete(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	res, err := h.Purchases.RecordPurchase(c.Request.Context(), service.PurchaseInput{
		Buyer:    req.Buyer,
		PhaseID:  req.PhaseID,
		Tokens:   req.Tokens.String(),
		Amount:   req.Amount.String(),
		Currency: req.Currency,
		TxHash:   req.TxHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AllPurchases is the purchase log, optionally filtered by ?wallet=
func (h *Handler) AllPurchases(c *gin.Context) {
	ctx := c.Request.Context()
	limit := queryLimit(c, 200)

	if wallet := c.Query("wallet"); wallet != "" {
		purchases, err := h.Purchases.PurchasesByWallet(ctx, wallet, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"purchases": purchases})
		return
	}

	purchases, err := h.Purchases.Purchases(ctx, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}
