// Package awstest provides in-memory fakes of the AWS client interfaces for tests.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Dynamo is an in-memory DynamoDB supporting the expressions used by this
// repository: attribute_not_exists(pk), attribute_exists(pk), "#s = :expected" conditions and simple
// SET updates including if_not_exists(attr, :zero) + :inc.
type Dynamo struct {
	mu     sync.Mutex
	keys   map[string]string // table -> partition key attribute
	Tables map[string]map[string]map[string]types.AttributeValue

	PutCalls      int
	UpdateCalls   int
	TransactCalls int

	// Err, when set, is returned by every call.
	Err error
}

// NewDynamo creates a fake with the given table -> partition key schema.
func NewDynamo(schema map[string]string) *Dynamo {
	d := &Dynamo{
		keys:   map[string]string{},
		Tables: map[string]map[string]map[string]types.AttributeValue{},
	}
	for tbl, pk := range schema {
		d.keys[tbl] = pk
		d.Tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
	return d
}

func (d *Dynamo) table(name string) (map[string]map[string]types.AttributeValue, string, error) {
	t, ok := d.Tables[name]
	if !ok {
		return nil, "", &types.ResourceNotFoundException{Message: strPtr("table not found: " + name)}
	}
	return t, d.keys[name], nil
}

func keyValue(m map[string]types.AttributeValue, pk string) (string, error) {
	v, ok := m[pk].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("missing string key attribute %q", pk)
	}
	return v.Value, nil
}

// Item returns a stored item, or nil.
func (d *Dynamo) Item(table, key string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Tables[table][key]
}

// Seed stores item directly, bypassing conditions.
func (d *Dynamo) Seed(table string, item map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, pk, err := d.table(table)
	if err != nil {
		panic(err)
	}
	k, err := keyValue(item, pk)
	if err != nil {
		panic(err)
	}
	t[k] = item
}

func (d *Dynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PutCalls++
	if d.Err != nil {
		return nil, d.Err
	}
	apply, err := d.preparePut(*in.TableName, in.Item, in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	apply()
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	t, pk, err := d.table(*in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := keyValue(in.Key, pk)
	if err != nil {
		return nil, err
	}
	item, ok := t[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(item)}, nil
}

func (d *Dynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.UpdateCalls++
	if d.Err != nil {
		return nil, d.Err
	}
	apply, err := d.prepareUpdate(*in.TableName, in.Key, deref(in.UpdateExpression), in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	item := apply()
	return &dyn.UpdateItemOutput{Attributes: clone(item)}, nil
}

func (d *Dynamo) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.TransactCalls++
	if d.Err != nil {
		return nil, d.Err
	}

	// check every condition before applying anything
	var applies []func()
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	canceled := false
	for i, it := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: strPtr("None")}
		var apply func()
		var err error
		switch {
		case it.Put != nil:
			p := it.Put
			apply, err = d.preparePut(*p.TableName, p.Item, p.ConditionExpression, p.ExpressionAttributeNames, p.ExpressionAttributeValues)
		case it.Update != nil:
			u := it.Update
			var fn func() map[string]types.AttributeValue
			fn, err = d.prepareUpdate(*u.TableName, u.Key, deref(u.UpdateExpression), u.ConditionExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
			apply = func() { fn() }
		default:
			return nil, errors.New("unsupported transact item")
		}
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			reasons[i] = types.CancellationReason{Code: strPtr("ConditionalCheckFailed")}
			canceled = true
			continue
		}
		if err != nil {
			return nil, err
		}
		applies = append(applies, apply)
	}
	if canceled {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}
	for _, a := range applies {
		a()
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (d *Dynamo) preparePut(table string, item map[string]types.AttributeValue, cond *string, names map[string]string, values map[string]types.AttributeValue) (func(), error) {
	t, pk, err := d.table(table)
	if err != nil {
		return nil, err
	}
	k, err := keyValue(item, pk)
	if err != nil {
		return nil, err
	}
	if err := checkCondition(t[k], cond, names, values); err != nil {
		return nil, err
	}
	stored := clone(item)
	return func() { t[k] = stored }, nil
}

func (d *Dynamo) prepareUpdate(table string, key map[string]types.AttributeValue, expr string, cond *string, names map[string]string, values map[string]types.AttributeValue) (func() map[string]types.AttributeValue, error) {
	t, pk, err := d.table(table)
	if err != nil {
		return nil, err
	}
	k, err := keyValue(key, pk)
	if err != nil {
		return nil, err
	}
	current := t[k]
	if err := checkCondition(current, cond, names, values); err != nil {
		return nil, err
	}

	next := clone(current)
	if next == nil {
		next = clone(key)
	}
	if err := applySet(next, expr, names, values); err != nil {
		return nil, err
	}
	return func() map[string]types.AttributeValue {
		t[k] = next
		return next
	}, nil
}

func checkCondition(item map[string]types.AttributeValue, cond *string, names map[string]string, values map[string]types.AttributeValue) error {
	if cond == nil || *cond == "" {
		return nil
	}
	c := strings.TrimSpace(*cond)
	if strings.HasPrefix(c, "attribute_not_exists(") && strings.HasSuffix(c, ")") {
		attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(c, "attribute_not_exists("), ")"), names)
		if _, exists := item[attr]; exists {
			return &types.ConditionalCheckFailedException{Message: strPtr("attribute exists: " + attr)}
		}
		return nil
	}
	if strings.HasPrefix(c, "attribute_exists(") && strings.HasSuffix(c, ")") {
		attr := resolveName(strings.TrimSuffix(strings.TrimPrefix(c, "attribute_exists("), ")"), names)
		if _, exists := item[attr]; !exists {
			return &types.ConditionalCheckFailedException{Message: strPtr("attribute missing: " + attr)}
		}
		return nil
	}
	if lhs, rhs, ok := strings.Cut(c, "="); ok {
		attr := resolveName(strings.TrimSpace(lhs), names)
		want, ok := values[strings.TrimSpace(rhs)]
		if !ok {
			return fmt.Errorf("unknown value placeholder in condition %q", c)
		}
		got, exists := item[attr]
		if !exists || !equalAV(got, want) {
			return &types.ConditionalCheckFailedException{Message: strPtr("condition failed: " + c)}
		}
		return nil
	}
	return fmt.Errorf("unsupported condition %q", c)
}

func applySet(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "SET ") {
		return fmt.Errorf("unsupported update expression %q", expr)
	}
	for _, assignment := range splitTopLevel(strings.TrimPrefix(expr, "SET ")) {
		lhs, rhs, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("bad assignment %q", assignment)
		}
		attr := resolveName(strings.TrimSpace(lhs), names)
		rhs = strings.TrimSpace(rhs)

		if strings.HasPrefix(rhs, "if_not_exists(") {
			// if_not_exists(attr, :zero) + :inc
			inner, inc, _ := strings.Cut(rhs, "+")
			inner = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(inner), "if_not_exists("), ")")
			_, zero, _ := strings.Cut(inner, ",")
			base := values[strings.TrimSpace(zero)]
			if existing, ok := item[attr]; ok {
				base = existing
			}
			sum := numberOf(base) + numberOf(values[strings.TrimSpace(inc)])
			item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(sum, 10)}
			continue
		}
		v, ok := values[rhs]
		if !ok {
			return fmt.Errorf("unknown value placeholder %q", rhs)
		}
		item[attr] = v
	}
	return nil
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

func resolveName(n string, names map[string]string) string {
	if strings.HasPrefix(n, "#") {
		if mapped, ok := names[n]; ok {
			return mapped
		}
	}
	return n
}

func numberOf(av types.AttributeValue) int64 {
	if n, ok := av.(*types.AttributeValueMemberN); ok {
		v, _ := strconv.ParseInt(n.Value, 10, 64)
		return v
	}
	return 0
}

func equalAV(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func clone(m map[string]types.AttributeValue) map[string]types.AttributeValue {
	if m == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string { return &s }
