// Package l402 provides HTTP 402 Payment Required middleware and an
// auto-paying client for the L402 protocol.
//
// A server gates resources behind a cryptographic proof-of-payment
// challenge: the middleware responds 402 with an invoice and a payment
// hash, and admits any request whose Authorization header carries a
// preimage hashing to that payment hash. The client wraps an ordinary
// HTTP exchange, detects the challenge, pays it through a caller-supplied
// wallet, and replays the request with proof attached. Paid credentials
// are cached so repeated requests to the same resource settle once.
//
// Server usage:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/api/resource", myHandler)
//
//	handler := l402.Middleware(mux, l402.GateConfig{
//	    Wallet:      myWallet,
//	    Price:       100, // satoshis
//	    Description: "API access",
//	    ExemptPaths: []string{"/health"},
//	})
//
//	http.ListenAndServe(":8080", handler)
//
// Client usage:
//
//	client := l402.NewClient(l402.ClientConfig{
//	    Wallet:    myWallet,
//	    MaxAmount: 1000,
//	    Store:     l402.NewMemoryStore(l402.MemoryStoreConfig{}),
//	})
//
//	resp, err := client.Do(req)
package l402
