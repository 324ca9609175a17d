package service_test

import (
	"context"
	"testing"
	"time"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchase(buyer string, tx int) service.PurchaseInput {
	return service.PurchaseInput{
		Buyer:    buyer,
		PhaseID:  0,
		Tokens:   "1000",
		Amount:   "2.5",
		Currency: "BNB",
		TxHash:   txh(tx),
	}
}

func TestRecordPurchase(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 3)

	res, err := e.purchases.RecordPurchase(ctx, purchase(addr(3), 1))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, addr(3), res.Event.Buyer)
	assert.Equal(t, domain.CurrencyNative, res.Event.Currency)
	require.Len(t, res.Commissions, 2)
	assert.True(t, res.Commissions[0].Amount.Equal(dec("50")))
	assert.True(t, res.Commissions[1].Amount.Equal(dec("30")))

	again, err := e.purchases.RecordPurchase(ctx, purchase(addr(3), 1))
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Len(t, again.Commissions, 2)

	all, err := e.purchases.Purchases(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	mine, err := e.purchases.PurchasesByWallet(ctx, addr(3), 10)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestRecordPurchase_PaidBase(t *testing.T) {
	e := newEnv(t, withBasePaid())
	e.chain(t, 2)

	res, err := e.purchases.RecordPurchase(context.Background(), purchase(addr(2), 1))
	require.NoError(t, err)
	require.Len(t, res.Commissions, 1)
	assert.True(t, res.Commissions[0].Amount.Equal(dec("0.125")))
}

func TestRecordPurchase_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 1)

	cases := []struct {
		name string
		edit func(*service.PurchaseInput)
		want error
	}{
		{"bad buyer", func(in *service.PurchaseInput) { in.Buyer = "nope" }, domain.ErrInvalidAddress},
		{"bad tx", func(in *service.PurchaseInput) { in.TxHash = "0x1234" }, domain.ErrInvalidTxHash},
		{"zero tokens", func(in *service.PurchaseInput) { in.Tokens = "0" }, domain.ErrInvalidAmount},
		{"negative paid", func(in *service.PurchaseInput) { in.Amount = "-1" }, domain.ErrInvalidAmount},
		{"currency", func(in *service.PurchaseInput) { in.Currency = "DOGE" }, domain.ErrInvalidCurrency},
		{"phase", func(in *service.PurchaseInput) { in.PhaseID = -1 }, domain.ErrInvalidStage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := purchase(addr(1), 1)
			tc.edit(&in)
			_, err := e.purchases.RecordPurchase(ctx, in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRecordPurchase_UnknownPhase(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 1)

	_, err := e.ico.CreateStage(ctx, addr(0xad), service.StageInput{
		Title:      "Seed",
		PhaseIndex: 0,
		Price:      "0.01",
		HardCap:    "100",
		StartAt:    epoch,
		EndAt:      epoch.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	in := purchase(addr(1), 1)
	in.PhaseID = 1
	_, err = e.purchases.RecordPurchase(ctx, in)
	assert.ErrorIs(t, err, domain.ErrStageNotFound)

	in.PhaseID = 0
	_, err = e.purchases.RecordPurchase(ctx, in)
	assert.NoError(t, err)
}

func TestRecordPurchase_UnconfirmedTx(t *testing.T) {
	v := &fakeVerifier{unconfirmed: map[string]bool{txh(1): true}}
	e := newEnv(t, withVerifier(v))
	ctx := context.Background()
	e.chain(t, 2)

	_, err := e.purchases.RecordPurchase(ctx, purchase(addr(2), 1))
	assert.ErrorIs(t, err, domain.ErrTxNotConfirmed)

	all, err := e.purchases.Purchases(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = e.purchases.RecordPurchase(ctx, purchase(addr(2), 2))
	assert.NoError(t, err)
}

func TestRecordPurchase_RootReplayPaysNobody(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 1)
	e.register(t, addr(0xad), "")

	in := service.PurchaseInput{Buyer: addr(0xad), Tokens: "1000", Amount: "1", TxHash: txh(7)}
	res, err := e.purchases.RecordPurchase(ctx, in)
	require.NoError(t, err)
	assert.Empty(t, res.Commissions)

	require.NoError(t, e.referrals.RegisterReferrer(ctx, addr(0xad), addr(1)))

	again, err := e.purchases.RecordPurchase(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Empty(t, again.Commissions)

	earnings, err := e.commissions.Earnings(ctx, addr(1), 0)
	require.NoError(t, err)
	assert.Empty(t, earnings.Records)
}

func TestRecordPurchase_TxOfAnotherBuyer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 3)

	_, err := e.purchases.RecordPurchase(ctx, service.PurchaseInput{Buyer: addr(3), Tokens: "100", Amount: "1", TxHash: txh(5)})
	require.NoError(t, err)

	_, err = e.purchases.RecordPurchase(ctx, service.PurchaseInput{Buyer: addr(2), Tokens: "100", Amount: "1", TxHash: txh(5)})
	assert.ErrorIs(t, err, domain.ErrDuplicateTx)

	list, err := e.purchases.PurchasesByWallet(ctx, addr(2), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
