package store

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

// Predicate is a conjunction of column = value conditions. A nil value matches NULL.
type Predicate map[string]any

// Patch maps columns to their new values. A nil value writes NULL.
type Patch map[string]any

// columns is the set of writable/filterable columns of a table, taken from its model.
type columns map[string]struct{}

func columnsOf(model any) columns {
	names, err := meddler.Columns(model, true)
	if err != nil {
		panic(fmt.Sprintf("invalid store model %T: %v", model, err))
	}
	out := make(columns, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

var tableColumns = map[string]columns{
	TableListings:      columnsOf(&Listing{}),
	TableActions:       columnsOf(&Action{}),
	TableBuffer:        columnsOf(&BufferEntry{}),
	TableSales:         columnsOf(&Sale{}),
	TableStatusChanges: columnsOf(&StatusChange{}),
	TableReviews:       columnsOf(&Review{}),
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (p Predicate) where(table string) (string, []any, error) {
	if len(p) == 0 {
		return "", nil, fmt.Errorf("%s: empty predicate", table)
	}
	allowed := tableColumns[table]

	clauses := make([]string, 0, len(p))
	args := make([]any, 0, len(p))
	for _, col := range sortedKeys(p) {
		if _, ok := allowed[col]; !ok {
			return "", nil, fmt.Errorf("%s: unknown column %q", table, col)
		}
		v := sqlValue(p[col])
		if v == nil {
			clauses = append(clauses, col+" IS NULL")
			continue
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, v)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (p Patch) set(table string) (string, []any, error) {
	if len(p) == 0 {
		return "", nil, fmt.Errorf("%s: empty patch", table)
	}
	allowed := tableColumns[table]

	assignments := make([]string, 0, len(p))
	args := make([]any, 0, len(p))
	for _, col := range sortedKeys(p) {
		if _, ok := allowed[col]; !ok {
			return "", nil, fmt.Errorf("%s: unknown column %q", table, col)
		}
		assignments = append(assignments, col+" = ?")
		args = append(args, sqlValue(p[col]))
	}
	return strings.Join(assignments, ", "), args, nil
}

// sqlValue converts domain values to the representation the meddlers store.
func sqlValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case common.Address:
		return strings.ToLower(t.Hex())
	case *common.Address:
		if t == nil {
			return nil
		}
		return strings.ToLower(t.Hex())
	case common.Hash:
		return t.Hex()
	case *big.Int:
		if t == nil {
			return nil
		}
		return t.String()
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *bool:
		if t == nil {
			return nil
		}
		return *t
	case *uint8:
		if t == nil {
			return nil
		}
		return *t
	default:
		return v
	}
}
