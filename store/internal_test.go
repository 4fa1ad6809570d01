package store

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/flexdb/document"
)

// --- updateExpr Tests ---

func TestUpdateExpr_NameReusesPlaceholder(t *testing.T) {
	u := newUpdateExpr()
	first := u.name("balance")
	second := u.name("balance")
	other := u.name("owner")

	if first != second {
		t.Errorf("expected same placeholder for same attribute, got %q and %q", first, second)
	}
	if first == other {
		t.Errorf("expected distinct placeholders, both %q", first)
	}
	if len(u.names) != 2 {
		t.Errorf("expected 2 names, got %d", len(u.names))
	}
}

func TestMergeExpr_SkipsReserved(t *testing.T) {
	u, err := mergeExpr(document.Object{
		"id":  document.String("x"),
		"_tb": document.String("y"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.empty() {
		t.Errorf("expected no clauses, got %v", u.sets)
	}
}

func TestMergeExpr_Expression(t *testing.T) {
	u, err := mergeExpr(document.Object{
		"owner":   document.String("ann"),
		"balance": document.Number("10"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := u.expression(), "SET #attr0 = :val0, #attr1 = :val1"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if u.names["#attr0"] != "balance" || u.names["#attr1"] != "owner" {
		t.Errorf("expected names in key order, got %v", u.names)
	}
}

func TestMergeExpr_InvalidNumber(t *testing.T) {
	_, err := mergeExpr(document.Object{"n": document.Number("NaN")})
	if !errors.Is(err, document.ErrInvalidJSON) {
		t.Errorf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestConditionNames(t *testing.T) {
	u := newUpdateExpr()
	u.name("tags")
	names := u.conditionNames()

	want := map[string]string{"#attr0": "tags", "#id": "id"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestIncrementExpr_UnknownOperator(t *testing.T) {
	_, err := incrementExpr(Statement{Kind: StatementUpdate, Field: "f", Op: "*="})
	if !errors.Is(err, ErrInvalidBatch) {
		t.Errorf("expected ErrInvalidBatch, got %v", err)
	}
}

// --- attribute conversion Tests ---

func TestMarshalValue_AllVariants(t *testing.T) {
	v := document.Object{
		"s":   document.String("x"),
		"n":   document.Number("1.5"),
		"b":   document.Bool(true),
		"z":   document.Null{},
		"a":   document.Array{document.Number("1")},
		"rec": document.Record{Collection: "users", ID: "1"},
	}

	av, err := marshalValue(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := av.(*types.AttributeValueMemberM).Value

	if m["s"].(*types.AttributeValueMemberS).Value != "x" {
		t.Error("expected S for string")
	}
	if m["n"].(*types.AttributeValueMemberN).Value != "1.5" {
		t.Error("expected N for number")
	}
	if !m["b"].(*types.AttributeValueMemberBOOL).Value {
		t.Error("expected BOOL for bool")
	}
	if !m["z"].(*types.AttributeValueMemberNULL).Value {
		t.Error("expected NULL for null")
	}
	if len(m["a"].(*types.AttributeValueMemberL).Value) != 1 {
		t.Error("expected L for array")
	}
	if m["rec"].(*types.AttributeValueMemberS).Value != "users:1" {
		t.Error("expected records to render as collection:id")
	}
}

func TestUnmarshalValue_Sets(t *testing.T) {
	tests := []struct {
		name string
		av   types.AttributeValue
		want document.Value
	}{
		{"string set", &types.AttributeValueMemberSS{Value: []string{"a", "b"}}, document.Array{document.String("a"), document.String("b")}},
		{"number set", &types.AttributeValueMemberNS{Value: []string{"1"}}, document.Array{document.Number("1")}},
		{"binary", &types.AttributeValueMemberB{Value: []byte("hi")}, document.String("aGk=")},
		{"binary set", &types.AttributeValueMemberBS{Value: [][]byte{[]byte("hi")}}, document.Array{document.String("aGk=")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unmarshalValue(tt.av)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalItem_Full(t *testing.T) {
	raw := map[string]types.AttributeValue{
		"_tb":  &types.AttributeValueMemberS{Value: "users"},
		"id":   &types.AttributeValueMemberS{Value: "abc"},
		"name": &types.AttributeValueMemberS{Value: "Ann"},
		"profile": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"age": &types.AttributeValueMemberN{Value: "30"},
		}},
	}

	doc, err := unmarshalItem(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := document.Object{
		"id":      document.Record{Collection: "users", ID: "abc"},
		"name":    document.String("Ann"),
		"profile": document.Object{"age": document.Number("30")},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalItem_MissingKey(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]types.AttributeValue
	}{
		{"empty", map[string]types.AttributeValue{}},
		{"no collection", map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "abc"}}},
		{"numeric id", map[string]types.AttributeValue{
			"_tb": &types.AttributeValueMemberS{Value: "users"},
			"id":  &types.AttributeValueMemberN{Value: "1"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := unmarshalItem(tt.raw); !errors.Is(err, document.ErrMalformedIdentifier) {
				t.Errorf("expected ErrMalformedIdentifier, got %v", err)
			}
		})
	}
}

// --- mapTransactionError Tests ---

func TestMapTransactionError_NilError(t *testing.T) {
	s := &DynamoStore{}
	if err := s.mapTransactionError(nil, nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestMapTransactionError_NilCode(t *testing.T) {
	s := &DynamoStore{}
	txErr := &types.TransactionCanceledException{
		Message: aws.String("canceled"),
		CancellationReasons: []types.CancellationReason{
			{Code: nil},
		},
	}
	err := s.mapTransactionError(txErr, nil)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotNumber) {
		t.Errorf("expected the original error, got %v", err)
	}
}

func TestMapTransactionError_ReasonBeyondUpdates(t *testing.T) {
	s := &DynamoStore{}
	txErr := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}
	if err := s.mapTransactionError(txErr, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Config Tests ---

func TestConfigValidate_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.validate()

	if cfg.Table != "flexdb_documents" {
		t.Errorf("expected default table, got %q", cfg.Table)
	}
	if cfg.MaxTransactItems != 100 {
		t.Errorf("expected MaxTransactItems 100, got %d", cfg.MaxTransactItems)
	}
}

func TestConfigValidate_MaxTransactItemsOverMax(t *testing.T) {
	cfg := Config{MaxTransactItems: 500}
	cfg.validate()
	if cfg.MaxTransactItems != 100 {
		t.Errorf("expected MaxTransactItems capped at 100, got %d", cfg.MaxTransactItems)
	}
}

func TestConfigValidate_PreservesCustomTable(t *testing.T) {
	cfg := Config{Table: "custom", MaxTransactItems: 10}
	cfg.validate()
	if cfg.Table != "custom" || cfg.MaxTransactItems != 10 {
		t.Errorf("expected custom values preserved, got %+v", cfg)
	}
}

func TestBoltConfigValidate_Defaults(t *testing.T) {
	cfg := BoltConfig{}
	cfg.validate()
	if cfg.Path != "flexdb.db" {
		t.Errorf("expected default path, got %q", cfg.Path)
	}
	if cfg.OpenTimeout <= 0 {
		t.Errorf("expected positive timeout, got %v", cfg.OpenTimeout)
	}
}
