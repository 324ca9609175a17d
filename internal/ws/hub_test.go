package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"twopc_backend/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "0x00000000000000000000000000000000000000a1"
	walletB = "0x00000000000000000000000000000000000000b2"
)

func startFeed(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/earnings", HandleWS(hub, ""))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, wallet string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/earnings?wallet=" + wallet
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func waitSubscribers(t *testing.T, hub *Hub, wallet string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers(wallet) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestFeedDeliversOnlyTargetWallet(t *testing.T) {
	hub := NewHub()
	srv := startFeed(t, hub)

	connA := dial(t, srv, walletA)
	connB := dial(t, srv, walletB)
	assert.Equal(t, MsgReady, readEnvelope(t, connA)["type"])
	assert.Equal(t, MsgReady, readEnvelope(t, connB)["type"])
	waitSubscribers(t, hub, walletA, 1)
	waitSubscribers(t, hub, walletB, 1)

	NewLocalPublisher(hub).PublishCommissions(context.Background(), []domain.CommissionEntry{{
		TargetWallet: walletA,
		SourceWallet: walletB,
		Level:        1,
		Amount:       decimal.RequireFromString("5"),
		TxHash:       "0xabc",
	}})

	env := readEnvelope(t, connA)
	assert.Equal(t, MsgCommission, env["type"])
	data := env["data"].(map[string]any)
	assert.Equal(t, walletA, data["wallet"])
	assert.Equal(t, "5", data["amount"])

	require.NoError(t, connB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := connB.ReadMessage()
	assert.Error(t, err, "wallet B must not receive wallet A's commission")
}

func TestFeedPingPong(t *testing.T) {
	hub := NewHub()
	srv := startFeed(t, hub)

	conn := dial(t, srv, walletA)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, MsgPong, readEnvelope(t, conn)["type"])
}

func TestFeedUnregistersOnClose(t *testing.T) {
	hub := NewHub()
	srv := startFeed(t, hub)

	conn := dial(t, srv, walletA)
	readEnvelope(t, conn)
	waitSubscribers(t, hub, walletA, 1)

	conn.Close()
	waitSubscribers(t, hub, walletA, 0)
}

func TestFeedRejectsBadWallet(t *testing.T) {
	hub := NewHub()
	srv := startFeed(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/earnings?wallet=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
