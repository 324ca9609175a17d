package handlers

import (
	"net/http"
	"strconv"

	"twopc_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Plans lists staking plans; ?all=true includes inactive ones
func (h *Handler) Plans(c *gin.Context) {
	plans, err := h.Staking.ListPlans(c.Request.Context(), c.Query("all") != "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

type CreatePlanRequest struct {
	PlanID   *int64          `json:"planId"`
	Title    string          `json:"title"`
	APR      int64           `json:"apr"`
	LockDays int64           `json:"lockDays"`
	MinStake decimal.Decimal `json:"minStake"`
	MaxStake decimal.Decimal `json:"maxStake"`
	IsFixed  bool            `json:"isFixed"`
	TxHash   string          `json:"txHash"`
}

// CreatePlan mirrors a plan created on the staking contract (admin)
func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}
	id := int64(-1)
	if req.PlanID != nil {
		id = *req.PlanID
	}

	plan, err := h.Staking.CreatePlan(c.Request.Context(), adminWallet(c), service.PlanInput{
		ID:       id,
		Title:    req.Title,
		APR:      req.APR,
		LockDays: req.LockDays,
		MinStake: req.MinStake.String(),
		MaxStake: req.MaxStake.String(),
		IsFixed:  req.IsFixed,
		TxHash:   req.TxHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plan": plan})
}

type PlanActiveRequest struct {
	Active bool `json:"active"`
}

// SetPlanActive toggles a plan (admin)
func (h *Handler) SetPlanActive(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid plan id")
		return
	}
	var req PlanActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	plan, err := h.Staking.SetPlanActive(c.Request.Context(), adminWallet(c), id, req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plan": plan})
}

type StakeRequest struct {
	Wallet string          `json:"wallet"`
	PlanID int64           `json:"planId"`
	Amount decimal.Decimal `json:"amount"`
	TxHash string          `json:"txHash"`
}

// Stake records a confirmed stake and pays its commissions
func (h *Handler) Stake(c *gin.Context) {
	var req StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	res, err := h.Staking.Stake(c.Request.Context(), service.StakeInput{
		Wallet: req.Wallet,
		PlanID: req.PlanID,
		Amount: req.Amount.String(),
		TxHash: req.TxHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type FinalizeRequest struct {
	Wallet     string `json:"wallet"`
	StakeIndex *int64 `json:"stakeIndex"`
	TxHash     string `json:"txHash"`
}

func (r FinalizeRequest) input() service.FinalizeInput {
	return service.FinalizeInput{Wallet: r.Wallet, StakeIndex: *r.StakeIndex, TxHash: r.TxHash}
}

// Withdraw claims a matured stake
func (h *Handler) Withdraw(c *gin.Context) {
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StakeIndex == nil {
		badRequest(c, "stakeIndex is required")
		return
	}

	st, err := h.Staking.Claim(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stake": st})
}

// EmergencyWithdraw ends a stake early for its principal only
func (h *Handler) EmergencyWithdraw(c *gin.Context) {
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StakeIndex == nil {
		badRequest(c, "stakeIndex is required")
		return
	}

	st, err := h.Staking.EmergencyWithdraw(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stake": st})
}

func (h *Handler) UserStakes(c *gin.Context) {
	stakes, err := h.Staking.UserStakes(c.Request.Context(), c.Query("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stakes": stakes})
}

func (h *Handler) Rewards(c *gin.Context) {
	rewards, err := h.Staking.Rewards(c.Request.Context(), c.Query("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rewards)
}
