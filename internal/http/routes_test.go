package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"twopc_backend/internal/http/handlers"
	"twopc_backend/internal/repository/memstore"
	"twopc_backend/internal/service"
	"twopc_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(n int) string { return fmt.Sprintf("0x%040x", n) }
func txh(n int) string  { return fmt.Sprintf("0x%064x", n) }

var adminAddr = addr(0xad)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	audit := service.NewAuditService(store)
	tokens := service.NewJWTManager("test-secret", time.Hour)
	hub := ws.NewHub()

	referrals := service.NewReferralService(store, audit, tokens, service.ReferralConfig{
		RequireReferrer: true,
		AdminWallets:    []string{adminAddr},
	})
	commissions := service.NewCommissionService(store, store, ws.NewLocalPublisher(hub), 18)
	percents := []decimal.Decimal{decimal.NewFromInt(5), decimal.NewFromInt(3), decimal.NewFromInt(1)}
	purchases := service.NewPurchaseService(store, store, commissions, nil, audit, service.PurchaseConfig{LevelPercents: percents})
	ico := service.NewIcoService(store, audit)
	staking := service.NewStakingService(store, store, commissions, nil, nil, audit, service.StakingConfig{Places: 18})
	admin := service.NewAdminService(store, store, audit)

	h := handlers.NewHandler(referrals, commissions, purchases, ico, staking, admin)
	health := handlers.NewHealthHandler("test", nil)

	r := gin.New()
	RegisterRoutes(r, h, health, RouteConfig{Tokens: tokens, Hub: hub, RateLimit: 1000})
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func register(t *testing.T, r http.Handler, wallet, referrer string) {
	t.Helper()
	code, body := do(t, r, http.MethodPost, "/user/register", "", gin.H{"wallet": wallet, "name": "", "referrer": referrer})
	require.Equal(t, http.StatusOK, code, body)
}

func login(t *testing.T, r http.Handler, wallet string) string {
	t.Helper()
	code, body := do(t, r, http.MethodPost, "/user/wallet-login", "", gin.H{"wallet": wallet})
	require.Equal(t, http.StatusOK, code, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterFlow(t *testing.T) {
	r := newTestRouter(t)

	register(t, r, addr(1), "")
	register(t, r, addr(2), addr(1))

	// same sponsor again is a no-op
	register(t, r, addr(2), addr(1))

	code, body := do(t, r, http.MethodPost, "/user/register", "", gin.H{"wallet": addr(2), "referrer": addr(3)})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_referrer", body["code"])

	register(t, r, addr(3), addr(1))
	code, body = do(t, r, http.MethodPost, "/user/register", "", gin.H{"wallet": addr(2), "referrer": addr(3)})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_registered", body["code"])

	code, body = do(t, r, http.MethodPost, "/user/register", "", gin.H{"wallet": addr(4)})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "referrer_required", body["code"])

	code, body = do(t, r, http.MethodPost, "/user/register", "", gin.H{"wallet": "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_address", body["code"])
}

func TestLoginUnknownWallet(t *testing.T) {
	r := newTestRouter(t)

	code, body := do(t, r, http.MethodPost, "/user/wallet-login", "", gin.H{"wallet": addr(9)})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["exists"])
	assert.Nil(t, body["token"])
}

func TestPurchaseDistributesAndReplays(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, addr(1), "")
	register(t, r, addr(2), addr(1))
	register(t, r, addr(3), addr(2))

	purchase := gin.H{
		"buyer":   addr(3),
		"phaseId": 0,
		"tokens":  1000,
		"amount":  "0.5",
		"txHash":  txh(1),
	}
	code, body := do(t, r, http.MethodPost, "/ico/purchase-complete", "", purchase)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["replayed"])
	entries := body["commissions"].([]any)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]any)
	assert.Equal(t, addr(2), first["wallet"])
	assert.Equal(t, "50", first["amount"])

	code, body = do(t, r, http.MethodPost, "/ico/purchase-complete", "", purchase)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["replayed"])
	assert.Len(t, body["commissions"].([]any), 2)

	code, body = do(t, r, http.MethodGet, "/user/referral-earnings?wallet="+addr(1), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "30", body["totalEarned"])

	code, body = do(t, r, http.MethodGet, "/user/referral-summary/"+addr(1), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["directReferrals"])
	assert.EqualValues(t, 2, body["networkSize"])
}

func TestReferralTreeLeaf(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, addr(1), "")

	code, body := do(t, r, http.MethodGet, "/user/referral-tree?wallet="+addr(1), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["children"])

	code, body = do(t, r, http.MethodGet, "/user/referral-tree?wallet="+addr(5), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "wallet_not_found", body["code"])
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, adminAddr, "")
	register(t, r, addr(1), adminAddr)

	plan := gin.H{"title": "Gold", "apr": 1200, "lockDays": 365, "minStake": "100", "maxStake": "100000", "txHash": txh(7)}

	code, _ := do(t, r, http.MethodPost, "/staking/plan/create", "", plan)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, r, http.MethodPost, "/staking/plan/create", login(t, r, addr(1)), plan)
	assert.Equal(t, http.StatusForbidden, code)

	adminToken := login(t, r, adminAddr)
	code, body := do(t, r, http.MethodPost, "/staking/plan/create", adminToken, plan)
	require.Equal(t, http.StatusOK, code, body)
	created := body["plan"].(map[string]any)
	assert.EqualValues(t, 0, created["planId"])

	code, body = do(t, r, http.MethodGet, "/staking/plans", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["plans"].([]any), 1)

	code, _ = do(t, r, http.MethodPatch, "/staking/plan/0/active", adminToken, gin.H{"active": false})
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, r, http.MethodPost, "/staking/stake", "", gin.H{"wallet": addr(1), "planId": 0, "amount": 500, "txHash": txh(8)})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "plan_inactive", body["code"])
}

func TestStakeErrors(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, adminAddr, "")
	register(t, r, addr(1), adminAddr)
	adminToken := login(t, r, adminAddr)

	code, body := do(t, r, http.MethodPost, "/staking/stake", "", gin.H{"wallet": addr(1), "planId": 3, "amount": 500, "txHash": txh(1)})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "plan_not_found", body["code"])

	code, _ = do(t, r, http.MethodPost, "/staking/plan/create", adminToken, gin.H{"title": "Lock", "apr": 1200, "lockDays": 30, "minStake": 100, "maxStake": 10000})
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, r, http.MethodPost, "/staking/stake", "", gin.H{"wallet": addr(1), "planId": 0, "amount": 50, "txHash": txh(2)})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "below_minimum", body["code"])

	code, body = do(t, r, http.MethodPost, "/staking/stake", "", gin.H{"wallet": addr(1), "planId": 0, "amount": 500, "txHash": txh(3)})
	require.Equal(t, http.StatusOK, code, body)

	code, body = do(t, r, http.MethodPost, "/staking/withdraw", "", gin.H{"wallet": addr(1), "stakeIndex": 0, "txHash": txh(4)})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "not_matured", body["code"])

	code, _ = do(t, r, http.MethodPost, "/staking/withdraw", "", gin.H{"wallet": addr(1), "txHash": txh(4)})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, r, http.MethodPost, "/staking/emergency-withdraw", "", gin.H{"wallet": addr(1), "stakeIndex": 0, "txHash": txh(5)})
	require.Equal(t, http.StatusOK, code, body)
	st := body["stake"].(map[string]any)
	assert.Equal(t, "500", st["payout"])

	code, body = do(t, r, http.MethodPost, "/staking/emergency-withdraw", "", gin.H{"wallet": addr(1), "stakeIndex": 0, "txHash": txh(6)})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_finalized", body["code"])

	code, body = do(t, r, http.MethodGet, "/staking/user-stakes?wallet="+addr(1), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["stakes"].([]any), 1)
}

func TestTokenSendLog(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, adminAddr, "")
	adminToken := login(t, r, adminAddr)

	send := gin.H{"title": "Bonus", "address": addr(1), "amount": "25", "txHash": txh(1)}
	code, body := do(t, r, http.MethodPost, "/staking/TokenSend", adminToken, send)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["replayed"])

	code, body = do(t, r, http.MethodPost, "/staking/TokenSend", adminToken, send)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["replayed"])

	code, body = do(t, r, http.MethodGet, "/staking/userlist", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["transfers"].([]any), 1)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	code, body := do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, _ = do(t, r, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, code)
}
