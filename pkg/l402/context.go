package l402

import "context"

type paymentContextKey struct{}

// PaymentDetails are the verified payment facts attached to an admitted
// request's context for downstream handlers.
type PaymentDetails struct {
	// Macaroon is the hex-encoded payment hash the proof verified against.
	Macaroon string

	// Preimage is the hex-encoded settlement preimage the caller presented.
	Preimage string

	// Amount is the configured price of the resource.
	Amount int64
}

func withPaymentDetails(ctx context.Context, d PaymentDetails) context.Context {
	return context.WithValue(ctx, paymentContextKey{}, d)
}

// PaymentFromContext returns the verified payment facts for an admitted
// request, or false if the request did not pass through the gate.
func PaymentFromContext(ctx context.Context) (PaymentDetails, bool) {
	d, ok := ctx.Value(paymentContextKey{}).(PaymentDetails)
	return d, ok
}
