// Package document models the JSON documents exchanged between the HTTP
// surface and the document store.
//
// Documents are trees of [Value]. Every variant of a JSON value has its own
// type ([Object], [Array], [String], [Number], [Bool] and [Null]), plus one
// store-internal variant, [Record], which carries a structured [RecordID].
//
// # Record identifiers
//
// A store assigns each document a [RecordID] made of the collection name and
// an opaque id. Stores hand documents back with the id field holding a
// [Record]; [Normalize] flattens it to a plain [String] holding only the
// opaque part before the document leaves the service:
//
//	doc, _ := st.Get(ctx, document.ParsePathID("users", "ann"))
//	out, err := document.Normalize(doc) // {"id": "ann", ...}
//
// # Numbers
//
// Numbers keep their decimal text exactly as received. [Number.Add] and
// [Number.Sub] operate on exact rationals, so integer arithmetic never picks
// up floating point noise.
package document
