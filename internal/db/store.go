package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/incognish/incognish/internal/db/queries"
)

// ReplaceProfile swaps every stored profile field for fields in one transaction.
func (c *Database) ReplaceProfile(ctx context.Context, fields map[string]string, updatedAt string) error {
	return c.WithTx(ctx, func(q *queries.Queries) error {
		if err := q.DeleteProfileFields(ctx); err != nil {
			return fmt.Errorf("clear profile: %w", err)
		}
		for key, value := range fields {
			if err := q.InsertProfileField(ctx, queries.InsertProfileFieldParams{
				Key:       key,
				Value:     value,
				UpdatedAt: updatedAt,
			}); err != nil {
				return fmt.Errorf("insert profile field %q: %w", key, err)
			}
		}
		return nil
	})
}

// LatestStatusCounts returns the status breakdown over each broker's most recent request.
func (c *Database) LatestStatusCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := c.Queries.CountLatestStatuses(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

// WithTx runs a function within a transaction.
func (c *Database) WithTx(ctx context.Context, fn func(*queries.Queries) error) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(c.Queries.WithTx(tx)); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return rollbackErr
		}
		return err
	}
	return tx.Commit()
}
