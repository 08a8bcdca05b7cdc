// Example server and auto-paying client demonstrating the L402 flow
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jeletor/l402-agent/pkg/l402"
)

func main() {
	listenAddr := flag.String("listen", ":8080", "Server listen address")
	redisAddr := flag.String("redis", "", "Redis address for the client credential cache (empty: in-memory)")
	flag.Parse()

	// The mock wallet plays both roles in this demo: it mints invoices
	// for the server and settles them for the client.
	wallet := l402.NewMockWallet()

	go runServer(*listenAddr, wallet)
	time.Sleep(200 * time.Millisecond)

	runClient("http://localhost"+*listenAddr, wallet, *redisAddr)
}

func runServer(addr string, wallet l402.Wallet) {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Protected endpoint that requires payment
	mux.HandleFunc("/api/protected", func(w http.ResponseWriter, r *http.Request) {
		details, _ := l402.PaymentFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message": "Access granted, paid ` + details.Preimage[:8] + `..."}`))
	})

	// Public endpoint (exempt from payment)
	mux.HandleFunc("/api/public", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message": "This is a public endpoint"}`))
	})

	config := l402.GateConfig{
		Wallet:      wallet,
		Price:       100,
		Description: "example API access",
		ExemptPaths: []string{"/api/public", "/health"},
	}

	handler := l402.Middleware(mux, config)

	log.Println("🚀 L402 Example Server starting on", addr)
	log.Println("📖 Endpoints:")
	log.Println("   GET /health        - Health check (free)")
	log.Println("   GET /api/public    - Public endpoint (free)")
	log.Println("   GET /api/protected - Protected (100 sats)")

	log.Fatal(http.ListenAndServe(addr, handler))
}

func runClient(baseURL string, wallet *l402.MockWallet, redisAddr string) {
	store := credentialStore(redisAddr)
	defer store.Close()

	client := l402.NewClient(l402.ClientConfig{
		Wallet:    wallet,
		Decoder:   wallet,
		MaxAmount: 500,
		Store:     store,
		OnPayment: func(p l402.Payment) {
			log.Printf("💸 Paid %d sats for invoice %s...", p.Amount, p.Invoice[:16])
		},
	})

	// The first request pays; the second is served from the credential
	// cache without touching the wallet.
	for i := 1; i <= 2; i++ {
		req, err := http.NewRequest("GET", baseURL+"/api/protected", nil)
		if err != nil {
			log.Fatalf("Build request: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("Request %d failed: %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Printf("✅ Request %d: %d %s", i, resp.StatusCode, body)
	}
}

func credentialStore(redisAddr string) l402.CredentialStore {
	if redisAddr == "" {
		return l402.NewMemoryStore(l402.MemoryStoreConfig{})
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis unreachable at %s: %v", redisAddr, err)
	}
	log.Println("🗄️  Using Redis credential cache at", redisAddr)
	return l402.NewRedisStore(l402.RedisStoreConfig{Client: rdb})
}
