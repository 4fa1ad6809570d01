package document

import (
	"fmt"
	"strings"
)

// IDField is the document field that carries the record identifier.
const IDField = "id"

// RecordID identifies a document: the collection it lives in plus an opaque,
// store-assigned id.
type RecordID struct {
	Collection string
	ID         string
}

// String renders the identifier as "collection:id".
func (r RecordID) String() string {
	return r.Collection + ":" + r.ID
}

// ParsePathID builds a RecordID from the collection and id path segments
// verbatim. Invalid ids fail later, at the store.
func ParsePathID(collection, id string) RecordID {
	return RecordID{Collection: collection, ID: id}
}

// ParseRecordID parses the "collection:id" form. The string is split at the
// first colon, so ids may themselves contain colons.
func ParseRecordID(s string) (RecordID, error) {
	collection, id, ok := strings.Cut(s, ":")
	if !ok || collection == "" || id == "" {
		return RecordID{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
	}
	return RecordID{Collection: collection, ID: id}, nil
}

// Normalize replaces a structured record identifier in an object's id field
// with a plain string holding only the opaque id. Non-object values and
// objects without an id field are returned unchanged. The input is not
// modified.
func Normalize(v Value) (Value, error) {
	obj, ok := v.(Object)
	if !ok {
		return v, nil
	}
	raw, ok := obj[IDField]
	if !ok {
		return obj, nil
	}
	rec, ok := raw.(Record)
	if !ok {
		return nil, fmt.Errorf("%w: id field holds %s", ErrMalformedIdentifier, TypeName(raw))
	}
	out := obj.Clone()
	out[IDField] = String(rec.ID)
	return out, nil
}

// NormalizeAll normalizes every object in docs.
func NormalizeAll(docs []Object) ([]Value, error) {
	out := make([]Value, 0, len(docs))
	for _, doc := range docs {
		v, err := Normalize(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// RecordOf extracts the structured identifier from a store document.
func RecordOf(doc Object) (RecordID, error) {
	rec, ok := doc[IDField].(Record)
	if !ok {
		return RecordID{}, fmt.Errorf("%w: id field holds %s", ErrMalformedIdentifier, TypeName(doc[IDField]))
	}
	return RecordID(rec), nil
}
