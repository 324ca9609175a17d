package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// Registers a sponsor and a buyer against a running server, reports a
// purchase and waits for the sponsor's commission on the earnings feed.
func main() {
	base := os.Getenv("SMOKE_BASE_URL")
	if base == "" {
		port := os.Getenv("APP_PORT")
		if port == "" {
			port = "5000"
		}
		base = "http://localhost:" + port
	}

	sponsor := randomHex(20)
	buyer := randomHex(20)

	// REQUIRE_REFERRER=false or an empty database lets the sponsor register as a root
	post(base+"/user/register", map[string]any{"wallet": sponsor, "name": "smoke-sponsor"})
	post(base+"/user/register", map[string]any{"wallet": buyer, "name": "smoke-buyer", "referrer": sponsor})

	wsURL := "ws" + base[len("http"):] + "/ws/earnings?wallet=" + sponsor
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	var ready map[string]any
	if err := conn.ReadJSON(&ready); err != nil {
		log.Fatalf("read ready: %v", err)
	}
	log.Printf("feed %v", ready["type"])

	txHash := randomHex(32)
	post(base+"/ico/purchase-complete", map[string]any{
		"buyer":   buyer,
		"phaseId": 0,
		"tokens":  "1000",
		"amount":  "1",
		"txHash":  txHash,
	})

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			log.Fatalf("no commission received: %v", err)
		}
		if msg["type"] == "commission" {
			b, _ := json.MarshalIndent(msg["data"], "", "  ")
			fmt.Printf("commission received:\n%s\n", b)
			return
		}
	}
}

func post(url string, body any) {
	b, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&e)
		log.Fatalf("POST %s: %d %v", url, resp.StatusCode, e)
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Fatal(err)
	}
	return "0x" + hex.EncodeToString(b)
}
