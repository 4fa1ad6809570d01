// Package txn turns lists of field increments into store transactions.
package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacentio/flexdb/document"
	"github.com/jacentio/flexdb/store"
)

// ErrInvalidTx is returned when an operation can't be turned into a statement.
var ErrInvalidTx = errors.New("flexdb: invalid transaction operation")

// Tx is a single field increment: add Amount to Field of the record ID
// ("collection:id").
type Tx struct {
	ID     string          `json:"id"`
	Field  string          `json:"field"`
	Amount document.Number `json:"amount"`
}

// Batcher executes lists of Tx atomically against a store.
type Batcher struct {
	store  store.Store
	logger *slog.Logger
}

// NewBatcher creates a new Batcher.
func NewBatcher(s store.Store, logger *slog.Logger) *Batcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{store: s, logger: logger}
}

// Build turns ops into a framed batch, one update statement per op, in
// order.
//
// The operator is "+=" for non-negative amounts and "-=" for negative ones,
// and in both cases the statement carries the amount unchanged. A negative
// amount therefore increases the field by its absolute value.
func (b *Batcher) Build(ops []Tx) (*store.Batch, error) {
	batch := store.NewBatch()
	for i, op := range ops {
		stmt, err := statement(op)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		b.logger.Debug("built statement", "stmt", stmt.String())
		batch.Add(stmt)
	}
	return batch.Commit(), nil
}

// Execute builds ops into a batch and runs it. It returns the number of
// statements executed, BEGIN and COMMIT included.
func (b *Batcher) Execute(ctx context.Context, ops []Tx) (int, error) {
	batch, err := b.Build(ops)
	if err != nil {
		return 0, err
	}
	n, err := b.store.Exec(ctx, batch)
	if err != nil {
		return 0, err
	}
	b.logger.Info("executed transaction", "operations", len(ops), "statements", n)
	return n, nil
}

func statement(op Tx) (store.Statement, error) {
	rid, err := document.ParseRecordID(op.ID)
	if err != nil {
		return store.Statement{}, fmt.Errorf("%w: %w", ErrInvalidTx, err)
	}
	if op.Field == "" {
		return store.Statement{}, fmt.Errorf("%w: empty field", ErrInvalidTx)
	}
	sign, err := op.Amount.Sign()
	if err != nil {
		return store.Statement{}, fmt.Errorf("%w: amount: %v", ErrInvalidTx, err)
	}

	operator := store.OpAdd
	if sign < 0 {
		operator = store.OpSub
	}
	return store.Update(rid, op.Field, operator, op.Amount), nil
}
