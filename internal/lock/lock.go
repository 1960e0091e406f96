// Package lock provides per-entity mutual exclusion for read-modify-write
// operations on carts and product aggregates.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotObtained is returned when a lock could not be acquired within the
// configured wait time
var ErrNotObtained = errors.New("lock not obtained")

// Lease is an acquired lock. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive leases on named keys
type Locker interface {
	Obtain(ctx context.Context, key string) (Lease, error)
}

// Options configures lock acquisition
type Options struct {
	TTL           time.Duration // lease lifetime for lockers that expire leases
	Wait          time.Duration // maximum time to wait for a held key
	RetryInterval time.Duration // polling interval for lockers that poll
}

const (
	defaultTTL           = 10 * time.Second
	defaultWait          = 5 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = defaultTTL
	}
	if o.Wait <= 0 {
		o.Wait = defaultWait
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	return o
}

// CartKey is the lock key guarding a user's cart
func CartKey(userID string) string {
	return "cart:" + userID
}

// ProductRatingKey is the lock key guarding a product's rating aggregate
func ProductRatingKey(productID string) string {
	return "product-rating:" + productID
}

// waitError converts the end of a wait into the error returned to callers.
// Cancellation of the caller's context wins over the wait timeout.
func waitError(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrNotObtained
}
