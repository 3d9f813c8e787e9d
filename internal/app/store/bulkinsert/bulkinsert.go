// Package bulkinsert runs unordered InsertMany calls where a unique index
// makes duplicates an expected outcome rather than a failure.
package bulkinsert

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Result counts the outcome of an unordered insert.
type Result struct {
	Inserted   int
	Duplicates int
}

// Unordered inserts docs with ordered:false so every document is attempted.
// Duplicate-key write errors are counted, not returned; any other write
// error fails the whole call.
func Unordered(ctx context.Context, c *mongo.Collection, docs []interface{}) (Result, error) {
	if len(docs) == 0 {
		return Result{}, nil
	}

	res, err := c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))

	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err == nil {
		return Result{Inserted: inserted}, nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
		return Result{Inserted: inserted}, err
	}
	dups := 0
	for _, we := range bulkErr.WriteErrors {
		if !mongo.IsDuplicateKeyError(we) {
			return Result{Inserted: inserted}, err
		}
		dups++
	}
	// Some driver versions report every attempted id in InsertedIDs,
	// including the rejected ones.
	if inserted == len(docs) {
		inserted -= dups
	}
	return Result{Inserted: inserted, Duplicates: dups}, nil
}
