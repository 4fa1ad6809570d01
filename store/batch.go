package store

import (
	"fmt"
	"strings"

	"github.com/jacentio/flexdb/document"
)

// StatementKind distinguishes transaction framing from updates.
type StatementKind int

const (
	StatementBegin StatementKind = iota
	StatementUpdate
	StatementCommit
)

// Operator is the compound assignment an update statement applies.
type Operator string

const (
	// OpAdd adds the amount to the field.
	OpAdd Operator = "+="

	// OpSub subtracts the amount from the field.
	OpSub Operator = "-="
)

// Statement is one entry of a Batch.
type Statement struct {
	Kind StatementKind

	// Update statements only.
	Record document.RecordID
	Field  string
	Op     Operator
	Amount document.Number
}

// Begin returns the statement that opens a transaction.
func Begin() Statement {
	return Statement{Kind: StatementBegin}
}

// Commit returns the statement that closes a transaction.
func Commit() Statement {
	return Statement{Kind: StatementCommit}
}

// Update returns a statement applying "field op amount" to the record.
func Update(rid document.RecordID, field string, op Operator, amount document.Number) Statement {
	return Statement{
		Kind:   StatementUpdate,
		Record: rid,
		Field:  field,
		Op:     op,
		Amount: amount,
	}
}

// String renders the statement without a terminating semicolon.
func (s Statement) String() string {
	switch s.Kind {
	case StatementBegin:
		return "BEGIN TRANSACTION"
	case StatementCommit:
		return "COMMIT TRANSACTION"
	default:
		return fmt.Sprintf("UPDATE %s SET %s %s %s", s.Record, s.Field, s.Op, s.Amount)
	}
}

// Apply computes the new field value from the current one. A missing field
// counts as zero.
func (s Statement) Apply(current document.Number) (document.Number, error) {
	if current == "" {
		current = "0"
	}
	switch s.Op {
	case OpAdd:
		return current.Add(s.Amount)
	case OpSub:
		return current.Sub(s.Amount)
	default:
		return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidBatch, s.Op)
	}
}

func (s Statement) validate() error {
	if s.Kind != StatementUpdate {
		return nil
	}
	if s.Record.Collection == "" || s.Record.ID == "" {
		return fmt.Errorf("%w: %s: empty record id", ErrInvalidBatch, s)
	}
	if s.Field == "" {
		return fmt.Errorf("%w: %s: empty field", ErrInvalidBatch, s)
	}
	if isReserved(s.Field) {
		return fmt.Errorf("%w: %s", ErrReservedField, s.Field)
	}
	if s.Op != OpAdd && s.Op != OpSub {
		return fmt.Errorf("%w: %s: unknown operator", ErrInvalidBatch, s)
	}
	if !s.Amount.Valid() {
		return fmt.Errorf("%w: %s: invalid amount", ErrInvalidBatch, s)
	}
	return nil
}

// Batch is an ordered list of statements executed as one transaction.
type Batch struct {
	Statements []Statement
}

// NewBatch returns a batch opened with BEGIN.
func NewBatch() *Batch {
	return &Batch{Statements: []Statement{Begin()}}
}

// Add appends a statement.
func (b *Batch) Add(s Statement) *Batch {
	b.Statements = append(b.Statements, s)
	return b
}

// Commit closes the batch with COMMIT.
func (b *Batch) Commit() *Batch {
	return b.Add(Commit())
}

// Len returns the number of statements, framing included.
func (b *Batch) Len() int {
	return len(b.Statements)
}

// Updates returns the update statements in order.
func (b *Batch) Updates() []Statement {
	var updates []Statement
	for _, s := range b.Statements {
		if s.Kind == StatementUpdate {
			updates = append(updates, s)
		}
	}
	return updates
}

// String renders the batch as a semicolon terminated script.
func (b *Batch) String() string {
	parts := make([]string, len(b.Statements))
	for i, s := range b.Statements {
		parts[i] = s.String() + ";"
	}
	return strings.Join(parts, " ")
}

// Validate checks that the batch opens with BEGIN, closes with COMMIT and
// holds only well formed updates in between.
func (b *Batch) Validate() error {
	n := len(b.Statements)
	if n < 2 {
		return fmt.Errorf("%w: missing BEGIN/COMMIT", ErrInvalidBatch)
	}
	if b.Statements[0].Kind != StatementBegin {
		return fmt.Errorf("%w: first statement must be BEGIN", ErrInvalidBatch)
	}
	if b.Statements[n-1].Kind != StatementCommit {
		return fmt.Errorf("%w: last statement must be COMMIT", ErrInvalidBatch)
	}
	for _, s := range b.Statements[1 : n-1] {
		if s.Kind != StatementUpdate {
			return fmt.Errorf("%w: nested %s", ErrInvalidBatch, s)
		}
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}
