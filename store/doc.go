// Package store provides the document stores behind the flexdb HTTP API.
//
// Two backends implement [Store]:
//
//   - [BoltStore], an embedded store on a single bbolt file. One bucket per
//     collection, documents stored as JSON.
//   - [DynamoStore], a DynamoDB table keyed by collection and record id.
//
// Both assign record ids on [Store.Create] and hand documents back with the
// id field holding a [document.Record]. Callers flatten it with
// [document.Normalize] before rendering.
//
// # Transactions
//
// [Store.Exec] runs a [Batch] of field increments atomically. A batch is
// framed by exactly one BEGIN and one COMMIT:
//
//	b := store.NewBatch()
//	b.Add(store.Update(rid, "balance", store.OpAdd, "50"))
//	n, err := st.Exec(ctx, b.Commit())
//
// Either every statement applies or none does. Exec returns the number of
// statements executed, framing included.
//
// # Tracing
//
// Wrap any store with [Traced] to get an opentracing span per operation.
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrNotFound] - document doesn't exist
//   - [ErrAlreadyExists] - generated id collided
//   - [ErrInvalidBatch] - batch framing is wrong
//   - [ErrBatchTooLarge] - batch exceeds backend limits
//   - [ErrNotArray] - append target is not an array
//   - [ErrNotNumber] - increment target is not a number
//   - [ErrReservedField] - operation targets a store-managed field
package store
