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

func TestRecordTokenSend(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	in := service.TokenSendInput{Address: "0x" + "AB" + addr(7)[4:], Amount: "250.5", TxHash: txh(9)}
	res, err := e.admin.RecordTokenSend(ctx, addr(0xad), in)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, "Token transfer", res.Transfer.Title)
	assert.Equal(t, "0xab"+addr(7)[4:], res.Transfer.ToAddress)
	assert.True(t, res.Transfer.Amount.Equal(dec("250.5")))

	in.Title = "ignored on replay"
	again, err := e.admin.RecordTokenSend(ctx, addr(0xad), in)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, res.Transfer.ID, again.Transfer.ID)
	assert.Equal(t, "Token transfer", again.Transfer.Title)

	_, err = e.admin.RecordTokenSend(ctx, addr(0xad), service.TokenSendInput{Title: "Bonus", Address: addr(8), Amount: "1", TxHash: txh(10)})
	require.NoError(t, err)

	sends, err := e.admin.ListTokenSends(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sends, 2)
	assert.Equal(t, "Bonus", sends[0].Title, "newest first")

	logs, err := e.admin.RecentAudit(ctx, addr(0xad), 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2, "a replay is not audited again")
	for _, l := range logs {
		assert.Equal(t, domain.AuditActionTokenSend, l.Action)
	}
}

func TestRecordTokenSend_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		in   service.TokenSendInput
		want error
	}{
		{service.TokenSendInput{Address: "nope", Amount: "1", TxHash: txh(1)}, domain.ErrInvalidAddress},
		{service.TokenSendInput{Address: addr(1), Amount: "0", TxHash: txh(1)}, domain.ErrInvalidAmount},
		{service.TokenSendInput{Address: addr(1), Amount: "1", TxHash: "0x12"}, domain.ErrInvalidTxHash},
	}
	for _, tc := range cases {
		_, err := e.admin.RecordTokenSend(ctx, addr(0xad), tc.in)
		assert.ErrorIs(t, err, tc.want)
	}
}

func TestGetStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.chain(t, 3)

	_, err := e.purchases.RecordPurchase(ctx, service.PurchaseInput{Buyer: addr(3), Tokens: "1000", Amount: "10", TxHash: txh(1)})
	require.NoError(t, err)

	_, err = e.staking.CreatePlan(ctx, addr(0xad), goldPlan())
	require.NoError(t, err)
	stakeOn(t, e, addr(2), 0, "400", 2)
	stakeOn(t, e, addr(3), 0, "1000", 3)
	e.clock.advance(365 * 24 * time.Hour)
	_, err = e.staking.Claim(ctx, service.FinalizeInput{Wallet: addr(3), StakeIndex: 0, TxHash: txh(4)})
	require.NoError(t, err)

	_, err = e.admin.RecordTokenSend(ctx, addr(0xad), service.TokenSendInput{Address: addr(2), Amount: "7", TxHash: txh(5)})
	require.NoError(t, err)

	st, err := e.admin.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.TotalWallets)
	assert.EqualValues(t, 1, st.RootWallets)
	assert.EqualValues(t, 1, st.TotalPurchases)
	assert.True(t, st.TokensSold.Equal(dec("1000")))
	// purchase: 50 + 30, stake by 2: 8, stake by 3: 20 + 10
	assert.EqualValues(t, 5, st.CommissionCount)
	assert.True(t, st.CommissionsPaid.Equal(dec("118")), st.CommissionsPaid.String())
	assert.EqualValues(t, 1, st.ActiveStakes)
	assert.True(t, st.TotalStaked.Equal(dec("400")))
	assert.True(t, st.RewardsClaimed.Equal(dec("120")))
	assert.EqualValues(t, 1, st.TokenSends)
	assert.True(t, st.TokensSent.Equal(dec("7")))
}
