package reports

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Row is one tabular result row returned by a report procedure.
type Row map[string]interface{}

// Dispatcher invokes a named procedure on the backing data service.
type Dispatcher interface {
	Invoke(ctx context.Context, procedure string, args []interface{}) ([]Row, error)
}

// procedureNameRE guards interpolated procedure identifiers.
var procedureNameRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// BunDispatcher invokes report procedures as set-returning SQL functions
// over a bun connection, with a per-invocation deadline.
//
// Exceeding the deadline cancels the in-flight call; a hung data service
// can never block the request indefinitely.
type BunDispatcher struct {
	db      *bun.DB
	timeout time.Duration

	// queries maps a procedure name to an explicit SQL text, overriding
	// the default function-call form. Tests use this to run against
	// SQLite, which has no stored functions.
	queries map[string]string
}

// NewBunDispatcher creates a dispatcher with the given invocation timeout.
func NewBunDispatcher(db *bun.DB, timeout time.Duration) *BunDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BunDispatcher{
		db:      db,
		timeout: timeout,
		queries: make(map[string]string),
	}
}

// WithQuery overrides the SQL text used for a procedure. The text must
// carry one ? placeholder per argument.
func (d *BunDispatcher) WithQuery(procedure, query string) *BunDispatcher {
	d.queries[procedure] = query
	return d
}

// Invoke executes the named procedure and returns its rows verbatim.
// Outcomes are normalized: data-service failures become *RPCError and
// deadline overruns become ErrRPCTimeout.
func (d *BunDispatcher) Invoke(ctx context.Context, procedure string, args []interface{}) ([]Row, error) {
	query, ok := d.queries[procedure]
	if !ok {
		if !procedureNameRE.MatchString(procedure) {
			return nil, &RPCError{Procedure: procedure, Message: "invalid procedure name"}
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
		query = fmt.Sprintf("SELECT * FROM %s(%s)", procedure, placeholders)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var rows []map[string]interface{}
	if err := d.db.NewRaw(query, args...).Scan(ctx, &rows); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: procedure %s exceeded %s", ErrRPCTimeout, procedure, d.timeout)
		}
		return nil, &RPCError{Procedure: procedure, Message: err.Error()}
	}

	result := make([]Row, len(rows))
	for i, r := range rows {
		result[i] = Row(r)
	}
	return result, nil
}
