// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment allows it, and plainly on a standalone server that does not.
//
// Callers that must undo partial work by hand in the plain case can check
// Active(ctx) inside fn.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run calls fn inside a transaction, or directly when sessions or
// transactions are unavailable. log may be nil.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		warn(log, "no session available, writing without a transaction", err)
		return fn(ctx)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && NotSupported(err) {
		warn(log, "transactions unsupported, writing without one", err)
		return fn(ctx)
	}
	return err
}

// Active reports whether ctx is the session context of a running transaction.
func Active(ctx context.Context) bool {
	_, ok := ctx.(mongo.SessionContext)
	return ok
}

func warn(log *zap.Logger, msg string, err error) {
	if log != nil {
		log.Warn(msg, zap.Error(err))
	}
}

// NotSupported recognizes the errors a standalone mongod (or a DocumentDB
// cluster without transactions) returns for a transactional write: codes
// 20 IllegalOperation and 263 OperationNotSupportedInTransaction, or a
// message naming both transactions and replica sets.
func NotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 20 || ce.Code == 263) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transaction") &&
		(strings.Contains(msg, "replica set") || strings.Contains(msg, "not supported"))
}
