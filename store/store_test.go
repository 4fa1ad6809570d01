package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"

	"github.com/jacentio/flexdb/document"
	"github.com/jacentio/flexdb/store"
)

// --- Unit Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := store.DefaultConfig()

	if cfg.Table != "flexdb_documents" {
		t.Errorf("expected Table 'flexdb_documents', got %q", cfg.Table)
	}
	if cfg.MaxTransactItems != 100 {
		t.Errorf("expected MaxTransactItems 100, got %d", cfg.MaxTransactItems)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := store.NewID()
		if id == "" {
			t.Fatal("expected non-empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestStatementString(t *testing.T) {
	rid := document.ParsePathID("account", "1")
	tests := []struct {
		stmt store.Statement
		want string
	}{
		{store.Begin(), "BEGIN TRANSACTION"},
		{store.Commit(), "COMMIT TRANSACTION"},
		{store.Update(rid, "balance", store.OpAdd, "50"), "UPDATE account:1 SET balance += 50"},
		{store.Update(rid, "balance", store.OpSub, "-50"), "UPDATE account:1 SET balance -= -50"},
	}
	for _, tt := range tests {
		if got := tt.stmt.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestStatementApply(t *testing.T) {
	rid := document.ParsePathID("account", "1")
	tests := []struct {
		name    string
		stmt    store.Statement
		current document.Number
		want    document.Number
	}{
		{"add to missing", store.Update(rid, "f", store.OpAdd, "5"), "", "5"},
		{"add", store.Update(rid, "f", store.OpAdd, "5"), "10", "15"},
		{"subtract", store.Update(rid, "f", store.OpSub, "5"), "10", "5"},
		{"subtract negative", store.Update(rid, "f", store.OpSub, "-5"), "10", "15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.stmt.Apply(tt.current)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestBatchString(t *testing.T) {
	b := store.NewBatch().
		Add(store.Update(document.ParsePathID("account", "1"), "balance", store.OpSub, "-50")).
		Commit()

	want := "BEGIN TRANSACTION; UPDATE account:1 SET balance -= -50; COMMIT TRANSACTION;"
	if got := b.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if b.Len() != 3 {
		t.Errorf("expected Len 3, got %d", b.Len())
	}
	if len(b.Updates()) != 1 {
		t.Errorf("expected 1 update, got %d", len(b.Updates()))
	}
}

func TestBatchValidate(t *testing.T) {
	rid := document.ParsePathID("account", "1")
	tests := []struct {
		name    string
		batch   *store.Batch
		wantErr error
	}{
		{"valid", store.NewBatch().Add(store.Update(rid, "balance", store.OpAdd, "1")).Commit(), nil},
		{"empty framed", store.NewBatch().Commit(), nil},
		{"no statements", &store.Batch{}, store.ErrInvalidBatch},
		{"no commit", store.NewBatch().Add(store.Update(rid, "balance", store.OpAdd, "1")), store.ErrInvalidBatch},
		{"no begin", (&store.Batch{}).Add(store.Update(rid, "balance", store.OpAdd, "1")).Commit(), store.ErrInvalidBatch},
		{"nested begin", store.NewBatch().Add(store.Begin()).Commit(), store.ErrInvalidBatch},
		{"empty field", store.NewBatch().Add(store.Update(rid, "", store.OpAdd, "1")).Commit(), store.ErrInvalidBatch},
		{"reserved field", store.NewBatch().Add(store.Update(rid, "id", store.OpAdd, "1")).Commit(), store.ErrReservedField},
		{"empty record", store.NewBatch().Add(store.Update(document.RecordID{}, "balance", store.OpAdd, "1")).Commit(), store.ErrInvalidBatch},
		{"bad operator", store.NewBatch().Add(store.Update(rid, "balance", "*=", "1")).Commit(), store.ErrInvalidBatch},
		{"bad amount", store.NewBatch().Add(store.Update(rid, "balance", store.OpAdd, "ten")).Commit(), store.ErrInvalidBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTraced_RecordsSpans(t *testing.T) {
	tracer := mocktracer.New()
	s := store.Traced(openBolt(t), tracer)
	ctx := context.Background()

	doc, err := s.Create(ctx, "users", document.Object{"name": document.String("Ann")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rid, _ := document.RecordOf(doc)
	if _, err := s.Get(ctx, document.ParsePathID("users", "ghost")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Select(ctx, "users"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := s.Merge(ctx, rid, document.Object{"age": document.Number("1")}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := s.Append(ctx, rid, "tags", document.String("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Exec(ctx, store.NewBatch().Commit()); err != nil {
		t.Fatalf("exec: %v", err)
	}

	spans := tracer.FinishedSpans()
	wantOps := []string{"store.Create", "store.Get", "store.Select", "store.Merge", "store.Append", "store.Exec"}
	if len(spans) != len(wantOps) {
		t.Fatalf("expected %d spans, got %d", len(wantOps), len(spans))
	}
	for i, op := range wantOps {
		if spans[i].OperationName != op {
			t.Errorf("span %d: expected %q, got %q", i, op, spans[i].OperationName)
		}
	}
	if spans[0].Tag("collection") != "users" {
		t.Errorf("expected collection tag, got %v", spans[0].Tag("collection"))
	}
	if spans[1].Tag("error") != true {
		t.Errorf("expected failed Get to be tagged as error, got %v", spans[1].Tag("error"))
	}
	if spans[2].Tag("count") != 1 {
		t.Errorf("expected count tag 1, got %v", spans[2].Tag("count"))
	}
}

// --- Examples ---

// ExampleBatch demonstrates building a transfer batch.
func ExampleBatch() {
	from := document.ParsePathID("account", "1")
	to := document.ParsePathID("account", "2")

	b := store.NewBatch().
		Add(store.Update(from, "balance", store.OpSub, "50")).
		Add(store.Update(to, "balance", store.OpAdd, "50")).
		Commit()

	fmt.Println(b)
	// Output: BEGIN TRANSACTION; UPDATE account:1 SET balance -= 50; UPDATE account:2 SET balance += 50; COMMIT TRANSACTION;
}
