package db

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// Retryable is a function that decides whether a failed attempt may be retried.
type Retryable func(err error) bool

const DefaultMaxRetries = 3

// Try executes an operation with default retry settings for transient
// storage errors. Domain failures (validation, duplicate keys) are never
// retried here; retries belong to the storage layer only.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsTransientError)
}

// WithRetries executes an operation up to 1+maxRetries times, retrying only
// while isRetryable reports the error as transient. A small incremental
// backoff is applied between attempts.
func WithRetries(op Operation, maxRetries int, isRetryable Retryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		if attempt == maxRetries {
			break
		}

		if isRetryable(err) {
			time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
		} else {
			return err
		}
	}
	return err
}

// IsTransientError reports whether an error from MongoDB is worth retrying:
// network failures and timeouts, but never write errors such as duplicate
// keys, which are meaningful to the caller.
func IsTransientError(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return false
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

// IsDup reports whether an error from MongoDB is a unique index violation.
// Services translate these into conflict errors.
func IsDup(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
