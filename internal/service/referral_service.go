package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"
)

// DefaultTreeDepth caps referral tree queries
const DefaultTreeDepth = 10

// ErrInvalidSignature is returned by Login for a bad or stale signature
var ErrInvalidSignature = errors.New("invalid wallet signature")

// ReferralService owns the referral graph: registration, ancestry and the
// tree view.
type ReferralService struct {
	wallets         WalletStore
	audit           *AuditService
	tokens          *JWTManager
	admins          map[string]bool
	requireReferrer bool
	requireSig      bool
	treeMaxDepth    int
	now             func() time.Time
}

// ReferralConfig holds the registration policy
type ReferralConfig struct {
	RequireReferrer bool
	// RequireSignature makes login fail without a personal_sign proof
	RequireSignature bool
	TreeMaxDepth     int
	AdminWallets     []string
}

func NewReferralService(wallets WalletStore, audit *AuditService, tokens *JWTManager, cfg ReferralConfig) *ReferralService {
	admins := make(map[string]bool, len(cfg.AdminWallets))
	for _, a := range cfg.AdminWallets {
		admins[strings.ToLower(a)] = true
	}
	depth := cfg.TreeMaxDepth
	if depth <= 0 {
		depth = DefaultTreeDepth
	}
	return &ReferralService{
		wallets:         wallets,
		audit:           audit,
		tokens:          tokens,
		admins:          admins,
		requireReferrer: cfg.RequireReferrer,
		requireSig:      cfg.RequireSignature,
		treeMaxDepth:    depth,
		now:             time.Now,
	}
}

// RegisterInput is the /user/register payload
type RegisterInput struct {
	Wallet   string
	Name     string
	Referrer string
}

// Register creates the wallet if needed and attaches its referrer.
// Repeating a registration with the same referrer succeeds without changes.
func (s *ReferralService) Register(ctx context.Context, in RegisterInput) (*domain.Wallet, error) {
	wallet, err := domain.NormalizeAddress(in.Wallet)
	if err != nil {
		return nil, err
	}

	var referrer string
	if !domain.IsZeroAddress(in.Referrer) {
		referrer, err = domain.NormalizeAddress(in.Referrer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidReferrer, err)
		}
		if referrer == wallet {
			return nil, fmt.Errorf("%w: self referral", domain.ErrInvalidReferrer)
		}
		ref, err := s.wallets.GetWallet(ctx, referrer)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			return nil, fmt.Errorf("%w: unknown referrer %s", domain.ErrInvalidReferrer, referrer)
		}
	} else if s.requireReferrer {
		n, err := s.wallets.CountWallets(ctx)
		if err != nil {
			return nil, err
		}
		// the very first wallet bootstraps the forest
		if n > 0 && !s.admins[wallet] {
			return nil, domain.ErrReferrerNeeded
		}
	}

	role := domain.RoleUser
	if s.admins[wallet] {
		role = domain.RoleAdmin
	}
	w := &domain.Wallet{Address: wallet, Name: strings.TrimSpace(in.Name), Role: role}
	created, err := s.wallets.CreateWallet(ctx, w)
	if err != nil {
		return nil, err
	}
	if created {
		s.audit.Log(ctx, wallet, domain.AuditActionRegister, domain.AuditCategoryReferral, map[string]interface{}{
			"name":     w.Name,
			"referrer": referrer,
		})
	}

	if referrer == "" {
		return w, nil
	}
	if w.Referrer == referrer {
		return w, nil
	}
	if err := s.RegisterReferrer(ctx, wallet, referrer); err != nil {
		return nil, err
	}
	w.Referrer = referrer
	return w, nil
}

// RegisterReferrer sets wallet's referrer exactly once
func (s *ReferralService) RegisterReferrer(ctx context.Context, wallet, referrer string) error {
	wallet, err := domain.NormalizeAddress(wallet)
	if err != nil {
		return err
	}
	referrer, err = domain.NormalizeAddress(referrer)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidReferrer, err)
	}
	if wallet == referrer {
		return fmt.Errorf("%w: self referral", domain.ErrInvalidReferrer)
	}

	if err := s.wallets.AttachReferrer(ctx, wallet, referrer); err != nil {
		return err
	}

	logger.WithContext(ctx).Info("referrer attached", "wallet", wallet, "referrer", referrer)
	s.audit.Log(ctx, wallet, domain.AuditActionReferrerAttach, domain.AuditCategoryReferral, map[string]interface{}{
		"referrer": referrer,
	})
	return nil
}

// GetParent returns wallet's referrer, or "" for a root
func (s *ReferralService) GetParent(ctx context.Context, wallet string) (string, error) {
	w, err := s.getWallet(ctx, wallet)
	if err != nil {
		return "", err
	}
	return w.Referrer, nil
}

// GetAncestors returns up to maxLevels ancestors of wallet, nearest first.
func (s *ReferralService) GetAncestors(ctx context.Context, wallet string, maxLevels int) ([]string, error) {
	wallet, err := domain.NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	return ancestors(ctx, s.wallets, wallet, maxLevels)
}

// ancestors reads the chain from the store and drops anything that would
// break the forest invariant (repeats, the wallet itself).
func ancestors(ctx context.Context, store WalletStore, wallet string, maxLevels int) ([]string, error) {
	if maxLevels <= 0 {
		return nil, nil
	}
	chain, err := store.Ancestors(ctx, wallet, maxLevels)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{wallet: true}
	out := make([]string, 0, len(chain))
	for _, a := range chain {
		if seen[a] {
			logger.WithContext(ctx).Error("referral cycle detected", "wallet", wallet, "ancestor", a)
			break
		}
		seen[a] = true
		out = append(out, a)
		if len(out) == maxLevels {
			break
		}
	}
	return out, nil
}

// BuildTree returns the nested referral tree under root. maxDepth <= 0 or
// above the configured cap is clamped to the cap.
func (s *ReferralService) BuildTree(ctx context.Context, root string, maxDepth int) (*domain.ReferralNode, error) {
	w, err := s.getWallet(ctx, root)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 || maxDepth > s.treeMaxDepth {
		maxDepth = s.treeMaxDepth
	}

	visited := map[string]bool{w.Address: true}
	return s.buildNode(ctx, w, maxDepth, visited)
}

func (s *ReferralService) buildNode(ctx context.Context, w *domain.Wallet, depth int, visited map[string]bool) (*domain.ReferralNode, error) {
	node := &domain.ReferralNode{
		Name:     w.DisplayName(),
		Wallet:   w.Address,
		Children: []*domain.ReferralNode{},
	}
	if depth == 0 {
		return node, nil
	}

	children, err := s.wallets.ListChildren(ctx, w.Address)
	if err != nil {
		return nil, err
	}
	for i := range children {
		child := &children[i]
		if visited[child.Address] {
			continue
		}
		visited[child.Address] = true
		n, err := s.buildNode(ctx, child, depth-1, visited)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, n)
	}
	return node, nil
}

// NetworkStats counts the direct referrals, the whole downline and its depth
// (bounded by the tree cap).
func (s *ReferralService) NetworkStats(ctx context.Context, wallet string) (direct, size, depth int, err error) {
	tree, err := s.BuildTree(ctx, wallet, s.treeMaxDepth)
	if err != nil {
		return 0, 0, 0, err
	}
	direct = len(tree.Children)
	var walk func(n *domain.ReferralNode, level int)
	walk = func(n *domain.ReferralNode, level int) {
		if level > depth {
			depth = level
		}
		for _, c := range n.Children {
			size++
			walk(c, level+1)
		}
	}
	walk(tree, 0)
	return direct, size, depth, nil
}

// LoginInput is the /user/wallet-login payload. Message and Signature are
// optional unless signatures are required.
type LoginInput struct {
	Wallet    string
	Message   string
	Signature string
}

// Login reports whether the wallet is registered and issues a session token
func (s *ReferralService) Login(ctx context.Context, in LoginInput) (*domain.LoginInfo, error) {
	addr, err := domain.NormalizeAddress(in.Wallet)
	if err != nil {
		return nil, err
	}
	if in.Signature != "" || s.requireSig {
		if !ValidateWalletLogin(addr, in.Message, in.Signature, s.now()) {
			return nil, ErrInvalidSignature
		}
	}
	w, err := s.wallets.GetWallet(ctx, addr)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return &domain.LoginInfo{Exists: false, Wallet: addr}, nil
	}

	role := w.Role
	if s.admins[addr] {
		role = domain.RoleAdmin
	}
	info := &domain.LoginInfo{Exists: true, Wallet: addr, Name: w.Name, Role: role}
	if s.tokens != nil {
		token, err := s.tokens.Generate(addr, role)
		if err != nil {
			return nil, err
		}
		info.Token = token
	}
	return info, nil
}

// ListUsers returns registered wallets, newest first
func (s *ReferralService) ListUsers(ctx context.Context, limit, offset int) ([]domain.Wallet, error) {
	limit = pageSize(limit, 100)
	if offset < 0 {
		offset = 0
	}
	return s.wallets.ListWallets(ctx, limit, offset)
}

func (s *ReferralService) getWallet(ctx context.Context, wallet string) (*domain.Wallet, error) {
	addr, err := domain.NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	w, err := s.wallets.GetWallet(ctx, addr)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrWalletNotFound, addr)
	}
	return w, nil
}

// IsNotFound reports whether err is a not-found ledger error
func IsNotFound(err error) bool {
	return domain.KindOf(err) == domain.KindNotFound || errors.Is(err, domain.ErrWalletNotFound)
}

// SetClock replaces the service clock
func (s *ReferralService) SetClock(now func() time.Time) {
	s.now = now
}
