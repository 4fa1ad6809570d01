package store

import (
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/flexdb/document"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// keyOf returns the primary key of a record.
func keyOf(rid document.RecordID) PK {
	return PK{
		collectionAttr:   &types.AttributeValueMemberS{Value: rid.Collection},
		document.IDField: &types.AttributeValueMemberS{Value: rid.ID},
	}
}

// marshalValue converts a document value to a DynamoDB attribute.
func marshalValue(v document.Value) (types.AttributeValue, error) {
	switch x := v.(type) {
	case nil, document.Null:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case document.String:
		return &types.AttributeValueMemberS{Value: string(x)}, nil
	case document.Number:
		if !x.Valid() {
			return nil, fmt.Errorf("marshal number %q: %w", string(x), document.ErrInvalidJSON)
		}
		return &types.AttributeValueMemberN{Value: string(x)}, nil
	case document.Bool:
		return &types.AttributeValueMemberBOOL{Value: bool(x)}, nil
	case document.Record:
		return &types.AttributeValueMemberS{Value: document.RecordID(x).String()}, nil
	case document.Array:
		list := make([]types.AttributeValue, len(x))
		for i, elem := range x {
			av, err := marshalValue(elem)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case document.Object:
		m, err := marshalObject(x)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("marshal %T: unsupported value", v)
	}
}

// marshalObject converts an object to a DynamoDB attribute map.
func marshalObject(obj document.Object) (map[string]types.AttributeValue, error) {
	m := make(map[string]types.AttributeValue, len(obj))
	for k, v := range obj {
		av, err := marshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		m[k] = av
	}
	return m, nil
}

// unmarshalValue converts a DynamoDB attribute to a document value. Sets
// become arrays and binary values become base64 strings.
func unmarshalValue(av types.AttributeValue) (document.Value, error) {
	switch x := av.(type) {
	case *types.AttributeValueMemberS:
		return document.String(x.Value), nil
	case *types.AttributeValueMemberN:
		return document.Number(x.Value), nil
	case *types.AttributeValueMemberBOOL:
		return document.Bool(x.Value), nil
	case *types.AttributeValueMemberNULL:
		return document.Null{}, nil
	case *types.AttributeValueMemberB:
		return document.String(base64.StdEncoding.EncodeToString(x.Value)), nil
	case *types.AttributeValueMemberSS:
		arr := make(document.Array, len(x.Value))
		for i, s := range x.Value {
			arr[i] = document.String(s)
		}
		return arr, nil
	case *types.AttributeValueMemberNS:
		arr := make(document.Array, len(x.Value))
		for i, n := range x.Value {
			arr[i] = document.Number(n)
		}
		return arr, nil
	case *types.AttributeValueMemberBS:
		arr := make(document.Array, len(x.Value))
		for i, b := range x.Value {
			arr[i] = document.String(base64.StdEncoding.EncodeToString(b))
		}
		return arr, nil
	case *types.AttributeValueMemberL:
		arr := make(document.Array, len(x.Value))
		for i, elem := range x.Value {
			v, err := unmarshalValue(elem)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case *types.AttributeValueMemberM:
		obj := make(document.Object, len(x.Value))
		for k, elem := range x.Value {
			v, err := unmarshalValue(elem)
			if err != nil {
				return nil, err
			}
			obj[k] = v
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unmarshal %T: unsupported attribute", av)
	}
}

// unmarshalItem converts a stored item to a document whose id field holds
// the structured record id.
func unmarshalItem(raw map[string]types.AttributeValue) (document.Object, error) {
	var rid document.RecordID
	if v, ok := raw[collectionAttr].(*types.AttributeValueMemberS); ok {
		rid.Collection = v.Value
	}
	if v, ok := raw[document.IDField].(*types.AttributeValueMemberS); ok {
		rid.ID = v.Value
	}
	if rid.Collection == "" || rid.ID == "" {
		return nil, fmt.Errorf("%w: item without key attributes", document.ErrMalformedIdentifier)
	}

	doc := make(document.Object, len(raw))
	for k, av := range raw {
		if isReserved(k) {
			continue
		}
		v, err := unmarshalValue(av)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		doc[k] = v
	}
	doc[document.IDField] = document.Record(rid)
	return doc, nil
}
