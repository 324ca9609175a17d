package service_test

import (
	"context"
	"testing"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_FirstWalletIsRoot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	w, err := e.referrals.Register(ctx, service.RegisterInput{Wallet: addr(1), Name: " alice "})
	require.NoError(t, err)
	assert.Equal(t, "alice", w.Name)
	assert.Empty(t, w.Referrer)

	_, err = e.referrals.Register(ctx, service.RegisterInput{Wallet: addr(2)})
	assert.ErrorIs(t, err, domain.ErrReferrerNeeded)

	// admins may join without a sponsor
	w, err = e.referrals.Register(ctx, service.RegisterInput{Wallet: addr(0xad)})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, w.Role)
}

func TestRegister_ZeroAddressReferrerIsNone(t *testing.T) {
	e := newEnv(t)

	_, err := e.referrals.Register(context.Background(), service.RegisterInput{
		Wallet:   addr(1),
		Referrer: "0x0000000000000000000000000000000000000000",
	})
	require.NoError(t, err)
}

func TestRegister_ReferrerIsImmutable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 2)
	e.register(t, addr(3), addr(1))

	// same sponsor again succeeds
	w, err := e.referrals.Register(ctx, service.RegisterInput{Wallet: addr(2), Referrer: addr(1)})
	require.NoError(t, err)
	assert.Equal(t, addr(1), w.Referrer)

	_, err = e.referrals.Register(ctx, service.RegisterInput{Wallet: addr(2), Referrer: addr(3)})
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	parent, err := e.referrals.GetParent(ctx, addr(2))
	require.NoError(t, err)
	assert.Equal(t, addr(1), parent)
}

func TestRegister_RejectsBadReferrers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 1)

	cases := map[string]service.RegisterInput{
		"self":      {Wallet: addr(5), Referrer: addr(5)},
		"unknown":   {Wallet: addr(5), Referrer: addr(6)},
		"malformed": {Wallet: addr(5), Referrer: "0x123"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.referrals.Register(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidReferrer)
		})
	}

	_, err := e.referrals.Register(ctx, service.RegisterInput{Wallet: "bob", Referrer: addr(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestRegister_AddressesAreLowercased(t *testing.T) {
	e := newEnv(t)

	w, err := e.referrals.Register(context.Background(), service.RegisterInput{
		Wallet: "0x00000000000000000000000000000000000000AB",
	})
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000ab", w.Address)
}

func TestRegisterReferrer_RejectsCycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// 1 <- 2 <- 3
	e.chain(t, 3)
	err := e.referrals.RegisterReferrer(ctx, addr(1), addr(3))
	assert.ErrorIs(t, err, domain.ErrInvalidReferrer)

	err = e.referrals.RegisterReferrer(ctx, addr(1), addr(1))
	assert.ErrorIs(t, err, domain.ErrInvalidReferrer)

	up, err := e.referrals.GetAncestors(ctx, addr(3), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{addr(2), addr(1)}, up)
}

func TestGetAncestors_BoundedAndDistinct(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 6)

	up, err := e.referrals.GetAncestors(ctx, addr(6), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{addr(5), addr(4), addr(3)}, up)

	up, err = e.referrals.GetAncestors(ctx, addr(1), 3)
	require.NoError(t, err)
	assert.Empty(t, up)

	up, err = e.referrals.GetAncestors(ctx, addr(6), 0)
	require.NoError(t, err)
	assert.Empty(t, up)
}

func TestBuildTree(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 3)
	e.register(t, addr(4), addr(1))

	tree, err := e.referrals.BuildTree(ctx, addr(1), 0)
	require.NoError(t, err)
	assert.Equal(t, addr(1), tree.Wallet)
	require.Len(t, tree.Children, 2)

	var deep *domain.ReferralNode
	for _, c := range tree.Children {
		if c.Wallet == addr(2) {
			deep = c
		}
	}
	require.NotNil(t, deep)
	require.Len(t, deep.Children, 1)
	leaf := deep.Children[0]
	assert.Equal(t, addr(3), leaf.Wallet)
	assert.NotNil(t, leaf.Children)
	assert.Empty(t, leaf.Children)

	// depth 1 stops below the direct referrals
	shallow, err := e.referrals.BuildTree(ctx, addr(1), 1)
	require.NoError(t, err)
	for _, c := range shallow.Children {
		assert.Empty(t, c.Children)
	}

	_, err = e.referrals.BuildTree(ctx, addr(9), 0)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assert.True(t, service.IsNotFound(err))
}

func TestNetworkStats(t *testing.T) {
	e := newEnv(t)
	e.chain(t, 4)
	e.register(t, addr(5), addr(1))

	direct, size, depth, err := e.referrals.NetworkStats(context.Background(), addr(1))
	require.NoError(t, err)
	assert.Equal(t, 2, direct)
	assert.Equal(t, 4, size)
	assert.Equal(t, 3, depth)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 1)
	e.register(t, addr(0xad), "")

	info, err := e.referrals.Login(ctx, service.LoginInput{Wallet: addr(7)})
	require.NoError(t, err)
	assert.False(t, info.Exists)
	assert.Empty(t, info.Token)

	info, err = e.referrals.Login(ctx, service.LoginInput{Wallet: addr(1)})
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, domain.RoleUser, info.Role)
	assert.NotEmpty(t, info.Token)

	info, err = e.referrals.Login(ctx, service.LoginInput{Wallet: addr(0xad)})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, info.Role)

	_, err = e.referrals.Login(ctx, service.LoginInput{Wallet: addr(1), Message: "hi", Signature: "0x00"})
	assert.ErrorIs(t, err, service.ErrInvalidSignature)
}
