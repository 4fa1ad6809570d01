package store

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/jacentio/flexdb/document"
)

// TracedStore wraps a Store with one opentracing span per operation.
type TracedStore struct {
	next   Store
	tracer opentracing.Tracer
}

var _ Store = (*TracedStore)(nil)

// Traced returns s instrumented with tracer. A nil tracer uses the global one.
func Traced(s Store, tracer opentracing.Tracer) *TracedStore {
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}
	return &TracedStore{next: s, tracer: tracer}
}

func (t *TracedStore) start(ctx context.Context, op string) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, t.tracer, "store."+op)
	ext.DBType.Set(span, "document")
	return span, ctx
}

func finish(span opentracing.Span, err error) {
	if err != nil {
		ext.Error.Set(span, true)
		span.LogKV("event", "error", "message", err.Error())
	}
	span.Finish()
}

func (t *TracedStore) Create(ctx context.Context, collection string, content document.Object) (doc document.Object, err error) {
	span, ctx := t.start(ctx, "Create")
	defer func() { finish(span, err) }()
	span.SetTag("collection", collection)
	return t.next.Create(ctx, collection, content)
}

func (t *TracedStore) Select(ctx context.Context, collection string) (docs []document.Object, err error) {
	span, ctx := t.start(ctx, "Select")
	defer func() { finish(span, err) }()
	span.SetTag("collection", collection)
	docs, err = t.next.Select(ctx, collection)
	span.SetTag("count", len(docs))
	return docs, err
}

func (t *TracedStore) Get(ctx context.Context, rid document.RecordID) (doc document.Object, err error) {
	span, ctx := t.start(ctx, "Get")
	defer func() { finish(span, err) }()
	span.SetTag("record", rid.String())
	return t.next.Get(ctx, rid)
}

func (t *TracedStore) Merge(ctx context.Context, rid document.RecordID, content document.Object) (doc document.Object, err error) {
	span, ctx := t.start(ctx, "Merge")
	defer func() { finish(span, err) }()
	span.SetTag("record", rid.String())
	return t.next.Merge(ctx, rid, content)
}

func (t *TracedStore) Append(ctx context.Context, rid document.RecordID, field string, v document.Value) (doc document.Object, err error) {
	span, ctx := t.start(ctx, "Append")
	defer func() { finish(span, err) }()
	span.SetTag("record", rid.String())
	span.SetTag("field", field)
	return t.next.Append(ctx, rid, field, v)
}

func (t *TracedStore) Exec(ctx context.Context, b *Batch) (n int, err error) {
	span, ctx := t.start(ctx, "Exec")
	defer func() { finish(span, err) }()
	ext.DBStatement.Set(span, b.String())
	return t.next.Exec(ctx, b)
}

func (t *TracedStore) Close() error {
	return t.next.Close()
}
