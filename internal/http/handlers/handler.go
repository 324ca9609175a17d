package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/http/middleware"
	"twopc_backend/internal/logger"
	"twopc_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler groups the ledger services behind the HTTP routes
type Handler struct {
	Referrals   *service.ReferralService
	Commissions *service.CommissionService
	Summaries   *service.SummaryService
	Purchases   *service.PurchaseService
	Ico         *service.IcoService
	Staking     *service.StakingService
	Admin       *service.AdminService
}

func NewHandler(
	referrals *service.ReferralService,
	commissions *service.CommissionService,
	purchases *service.PurchaseService,
	ico *service.IcoService,
	staking *service.StakingService,
	admin *service.AdminService,
) *Handler {
	return &Handler{
		Referrals:   referrals,
		Commissions: commissions,
		Summaries:   service.NewSummaryService(referrals, commissions),
		Purchases:   purchases,
		Ico:         ico,
		Staking:     staking,
		Admin:       admin,
	}
}

// statusOf maps ledger error kinds to HTTP statuses
func statusOf(err error) int {
	if errors.Is(err, service.ErrInvalidSignature) {
		return http.StatusUnauthorized
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPrecondition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error", "code"}. Internal errors are logged and
// their message is not exposed.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(status, gin.H{"error": "internal error", "code": "internal"})
		return
	}
	code := domain.CodeOf(err)
	if errors.Is(err, service.ErrInvalidSignature) {
		code = "invalid_signature"
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "bad_request"})
}

// queryInt reads an integer query parameter, def when absent or malformed
func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// queryLimit reads ?limit=, def when absent or malformed, capped at
// service.MaxPageSize
func queryLimit(c *gin.Context, def int) int {
	n := queryInt(c, "limit", def)
	if n <= 0 {
		return def
	}
	return min(n, service.MaxPageSize)
}

// adminWallet is the wallet of the admin token on the request
func adminWallet(c *gin.Context) string {
	return middleware.Wallet(c)
}
