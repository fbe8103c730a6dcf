package db

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is one insert attempt. It must regenerate whatever value
// collided (document id, invoice number) on every call.
type Operation func() error

// IsDuplicateKeyError decides whether a failed attempt may be retried.
type IsDuplicateKeyError func(err error) bool

const (
	DefaultMaxRetries = 3
	retryBackoffStep  = 50 * time.Millisecond
)

// Try runs op, retrying duplicate key collisions up to DefaultMaxRetries times.
func Try(ctx context.Context, op Operation) error {
	return WithRetries(ctx, op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries runs op up to maxRetries+1 times. Only errors accepted by
// isDuplicateKey are retried; the last error is returned once attempts or
// the context run out.
func WithRetries(ctx context.Context, op Operation, maxRetries int, isDuplicateKey IsDuplicateKeyError) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == maxRetries || !isDuplicateKey(err) {
			return err
		}

		log.WithField("attempt", attempt+1).Debug("Duplicate key on insert, retrying")
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt+1) * retryBackoffStep):
		}
	}
	return err
}

// IsMongoDuplicateKeyError reports a unique index violation (code 11000),
// including inside bulk write and command errors.
func IsMongoDuplicateKeyError(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}
