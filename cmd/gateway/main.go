// L402 Payment Gateway - A reverse proxy that protects any backend with HTTP 402
package main

import (
	"flag"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jeletor/l402-agent/pkg/l402"
)

func main() {
	// Configuration flags
	listenAddr := flag.String("listen", ":8402", "Gateway listen address")
	adminAddr := flag.String("admin", ":8403", "Admin listen address (/metrics, /payments)")
	backendURL := flag.String("backend", "", "Backend URL to proxy to (e.g., http://localhost:3000)")
	price := flag.Int64("price", 100, "Price per request in satoshis")
	description := flag.String("description", "API access", "Invoice description")
	expiry := flag.Duration("expiry", 10*time.Minute, "Challenge expiry")
	exemptPaths := flag.String("exempt", "/health,/favicon.ico", "Comma-separated exempt paths")
	ledgerSize := flag.Int("ledger-size", 1000, "Maximum payment records retained")

	flag.Parse()

	// Allow environment variable overrides
	if env := os.Getenv("L402_BACKEND_URL"); env != "" {
		*backendURL = env
	}
	if env := os.Getenv("L402_LISTEN_ADDR"); env != "" {
		*listenAddr = env
	}
	if env := os.Getenv("L402_ADMIN_ADDR"); env != "" {
		*adminAddr = env
	}

	if *backendURL == "" {
		log.Fatal("Backend URL is required. Use -backend flag or L402_BACKEND_URL env var")
	}

	// Parse backend URL
	target, err := url.Parse(*backendURL)
	if err != nil {
		log.Fatalf("Invalid backend URL: %v", err)
	}

	// Create reverse proxy
	proxy := httputil.NewSingleHostReverseProxy(target)

	// Custom director to forward payment facts to the backend
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Header.Set("X-Forwarded-Host", req.Host)
		req.Header.Set("X-Origin-Host", target.Host)
		if details, ok := l402.PaymentFromContext(req.Context()); ok {
			req.Header.Set("X-L402-Macaroon", details.Macaroon)
		}
	}

	metrics := l402.NewMetrics()
	ledger := l402.NewMemoryLedger(*ledgerSize)

	// Configure the L402 gate
	config := l402.GateConfig{
		Wallet:          l402.NewMockWallet(),
		Price:           *price,
		Description:     *description,
		ChallengeExpiry: *expiry,
		ExemptPaths:     strings.Split(*exemptPaths, ","),
		Metrics:         metrics,
		Ledger:          ledger,
	}

	// Wrap proxy with the L402 payment gate
	handler := l402.Middleware(proxy, config)

	// Admin surface: metrics and the payment ledger
	admin := http.NewServeMux()
	admin.Handle("/metrics", metrics.Handler())
	admin.Handle("/payments", l402.LedgerHandler(ledger))

	go func() {
		log.Fatal(http.ListenAndServe(*adminAddr, admin))
	}()

	log.Printf("🚀 L402 Payment Gateway starting on %s", *listenAddr)
	log.Printf("🔗 Proxying to: %s", *backendURL)
	log.Printf("💰 Price: %d sats per request", *price)
	log.Printf("🔓 Exempt paths: %s", *exemptPaths)
	log.Printf("📊 Admin surface on %s (/metrics, /payments)", *adminAddr)

	log.Fatal(http.ListenAndServe(*listenAddr, handler))
}
