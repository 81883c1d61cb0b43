package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openfroyo/recordstore/pkg/stores"
)

// Operation names accepted by apply.
const (
	OpInsert = "insert"
	OpRead   = "get"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpCount  = "count"
)

// Op is one record operation, as given on the command line or in a script.
type Op struct {
	Op     string `yaml:"op" json:"op"`
	ID     int64  `yaml:"id" json:"id"`
	Value  string `yaml:"value" json:"value"`
	Limit  int    `yaml:"limit" json:"limit"`
	Offset int    `yaml:"offset" json:"offset"`
}

// Result is the outcome of one Op.
type Result struct {
	Op      string           `json:"op"`
	ID      *int64           `json:"id,omitempty"`
	Found   *bool            `json:"found,omitempty"`
	Value   *string          `json:"value,omitempty"`
	Changed *bool            `json:"changed,omitempty"`
	Count   *int64           `json:"count,omitempty"`
	Records []*stores.Record `json:"records,omitempty"`
}

// apply dispatches op against store.
func apply(ctx context.Context, store stores.Store, op Op) (*Result, error) {
	res := &Result{Op: op.Op}
	id := op.ID

	switch op.Op {
	case OpInsert:
		if err := store.Insert(ctx, id, op.Value); err != nil {
			return nil, err
		}
		res.ID = &id
		res.Changed = boolPtr(true)

	case OpRead, "read":
		res.Op = OpRead
		value, found, err := store.Read(ctx, id)
		if err != nil {
			return nil, err
		}
		res.ID = &id
		res.Found = &found
		if found {
			res.Value = &value
		}

	case OpUpdate:
		updated, err := store.Update(ctx, id, op.Value)
		if err != nil {
			return nil, err
		}
		res.ID = &id
		res.Changed = &updated

	case OpDelete:
		deleted, err := store.Delete(ctx, id)
		if err != nil {
			return nil, err
		}
		res.ID = &id
		res.Changed = &deleted

	case OpList:
		records, err := store.List(ctx, op.Limit, op.Offset)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []*stores.Record{}
		}
		res.Records = records

	case OpCount:
		n, err := store.Count(ctx)
		if err != nil {
			return nil, err
		}
		res.Count = &n

	default:
		return nil, fmt.Errorf("unknown operation %q", op.Op)
	}

	return res, nil
}

// printResult writes res as one JSON document or as plain text.
func printResult(w io.Writer, res *Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		return enc.Encode(res)
	}
	_, err := fmt.Fprintln(w, res.String())
	return err
}

// String renders the plain text form of res.
func (r *Result) String() string {
	switch r.Op {
	case OpRead:
		if r.Found == nil || !*r.Found {
			return "absent"
		}
		return *r.Value
	case OpInsert:
		return fmt.Sprintf("inserted %d", *r.ID)
	case OpUpdate, OpDelete:
		verb := "updated"
		if r.Op == OpDelete {
			verb = "deleted"
		}
		if r.Changed == nil || !*r.Changed {
			return fmt.Sprintf("no record %d", *r.ID)
		}
		return fmt.Sprintf("%s %d", verb, *r.ID)
	case OpCount:
		return strconv.FormatInt(*r.Count, 10)
	case OpList:
		var b strings.Builder
		for i, rec := range r.Records {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%d\t%s", rec.ID, rec.Value)
		}
		return b.String()
	}
	return r.Op
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q: must be a 64-bit integer", arg)
	}
	return id, nil
}

func boolPtr(b bool) *bool {
	return &b
}
