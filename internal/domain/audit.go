package domain

import "time"

// AuditLog represents an audit log entry for tracking ledger changes
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	Wallet    string                 `db:"wallet" json:"wallet"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth     = "auth"
	AuditCategoryReferral = "referral"
	AuditCategoryPurchase = "purchase"
	AuditCategoryStaking  = "staking"
	AuditCategoryAdmin    = "admin"
)

// Audit actions
const (
	// Auth actions
	AuditActionLogin = "login"

	// Referral actions
	AuditActionRegister       = "register"
	AuditActionReferrerAttach = "referrer_attach"
	AuditActionCommissionPaid = "commission_paid"

	// Purchase actions
	AuditActionPurchase = "purchase"

	// Staking actions
	AuditActionStake             = "stake"
	AuditActionClaim             = "claim"
	AuditActionEmergencyWithdraw = "emergency_withdraw"

	// Admin actions
	AuditActionStageCreate = "stage_create"
	AuditActionPlanCreate  = "plan_create"
	AuditActionPlanToggle  = "plan_toggle"
	AuditActionTokenSend   = "token_send"
)
