package store

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/flexdb/document"
)

// existsCondition guards updates against creating documents.
const existsCondition = "attribute_exists(#id)"

// absentCondition guards puts against overwriting documents.
const absentCondition = "attribute_not_exists(#id)"

// idNames returns the expression attribute names used by the conditions.
func idNames() map[string]string {
	return map[string]string{"#id": document.IDField}
}

// updateExpr accumulates a SET update expression with its placeholders.
type updateExpr struct {
	sets   []string
	names  map[string]string
	values map[string]types.AttributeValue
}

func newUpdateExpr() *updateExpr {
	return &updateExpr{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

// name returns the placeholder for an attribute name.
func (u *updateExpr) name(attr string) string {
	for k, v := range u.names {
		if v == attr {
			return k
		}
	}
	key := fmt.Sprintf("#attr%d", len(u.names))
	u.names[key] = attr
	return key
}

// value returns a new placeholder bound to av.
func (u *updateExpr) value(av types.AttributeValue) string {
	key := fmt.Sprintf(":val%d", len(u.values))
	u.values[key] = av
	return key
}

// set adds a clause to the SET list.
func (u *updateExpr) set(format string, args ...interface{}) {
	u.sets = append(u.sets, fmt.Sprintf(format, args...))
}

func (u *updateExpr) empty() bool {
	return len(u.sets) == 0
}

// expression renders the update expression.
func (u *updateExpr) expression() string {
	return "SET " + strings.Join(u.sets, ", ")
}

// mergeExpr builds "SET #attrN = :valN" for every user field of content, in
// key order so expressions are deterministic.
func mergeExpr(content document.Object) (*updateExpr, error) {
	u := newUpdateExpr()
	fields := userFields(content)
	for _, k := range fields.Keys() {
		av, err := marshalValue(fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		u.set("%s = %s", u.name(k), u.value(av))
	}
	return u, nil
}

// appendExpr builds the expression appending v to the list in field.
func appendExpr(field string, v document.Value) (*updateExpr, error) {
	av, err := marshalValue(v)
	if err != nil {
		return nil, err
	}
	u := newUpdateExpr()
	f := u.name(field)
	empty := u.value(&types.AttributeValueMemberL{Value: []types.AttributeValue{}})
	elem := u.value(&types.AttributeValueMemberL{Value: []types.AttributeValue{av}})
	u.set("%s = list_append(if_not_exists(%s, %s), %s)", f, f, empty, elem)
	return u, nil
}

// incrementExpr builds the expression for an update statement. A missing
// field starts from zero.
func incrementExpr(s Statement) (*updateExpr, error) {
	var arith string
	switch s.Op {
	case OpAdd:
		arith = "+"
	case OpSub:
		arith = "-"
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidBatch, s.Op)
	}
	u := newUpdateExpr()
	f := u.name(s.Field)
	zero := u.value(&types.AttributeValueMemberN{Value: "0"})
	amt := u.value(&types.AttributeValueMemberN{Value: string(s.Amount)})
	u.set("%s = if_not_exists(%s, %s) %s %s", f, f, zero, arith, amt)
	return u, nil
}

// conditionNames merges the update's names with those of the id condition.
func (u *updateExpr) conditionNames() map[string]string {
	return mergeExprNames(u.names, idNames())
}

// mergeExprNames merges multiple expression attribute name maps.
func mergeExprNames(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}
