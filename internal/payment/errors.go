// Package payment wraps the Razorpay and Stripe SDKs behind small gateways.
//
// Every SDK error leaves this package as ErrProvider; missing credentials are
// reported as ErrConfiguration before any call is made.
package payment

import "errors"

var (
	ErrConfiguration     = errors.New("payment provider not configured")
	ErrProvider          = errors.New("payment provider request failed")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
)
