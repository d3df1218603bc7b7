package reports

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/merchstats/reportgate/internal/auth"
	"github.com/merchstats/reportgate/internal/db/models"
)

// Kind identifies one of the supported report kinds.
type Kind string

const (
	KindTopProducts     Kind = "top_products"
	KindSalesByCategory Kind = "sales_by_category"
	KindSalesSummary    Kind = "sales_summary"
)

// Procedure names exposed by the backing data service.
const (
	procTopProducts     = "report_top_selling_products"
	procSalesByCategory = "report_sales_by_category"
	procSalesSummary    = "report_sales_summary"
)

// Limit policy for top_products.
const (
	defaultLimit = 3
	minLimit     = 1
	maxLimit     = 100
)

// Kinds lists the supported report kinds in schema order.
func Kinds() []Kind {
	return []Kind{KindTopProducts, KindSalesByCategory, KindSalesSummary}
}

// Supported reports whether the kind names a known report.
func Supported(kind Kind) bool {
	switch kind {
	case KindTopProducts, KindSalesByCategory, KindSalesSummary:
		return true
	}
	return false
}

// Request carries validated report parameters. Limit holds the raw decoded
// JSON value; normalization is report-specific.
type Request struct {
	Kind    Kind
	Period  string
	From    string
	To      string
	Limit   interface{}
	StoreID string
}

// Result is a successfully generated report.
type Result struct {
	Report      string                 `json:"report"`
	Params      map[string]interface{} `json:"params"`
	GeneratedAt time.Time              `json:"generated_at"`
	Data        []Row                  `json:"data"`
}

// AuditSink accepts best-effort audit records without blocking.
type AuditSink interface {
	Record(record *models.ReportAudit)
}

// Service composes date-range resolution, procedure dispatch, and
// best-effort audit logging into report generation.
type Service struct {
	dispatcher Dispatcher
	audit      AuditSink
	now        func() time.Time
}

// NewService creates the report service over a dispatcher.
func NewService(dispatcher Dispatcher) *Service {
	return &Service{
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// WithAuditSink attaches a best-effort audit sink.
func (s *Service) WithAuditSink(sink AuditSink) *Service {
	s.audit = sink
	return s
}

// Generate runs one report for the caller. The RPC outcome is returned
// unchanged; an audit record is enqueued only on success and only when a
// caller identity is present.
func (s *Service) Generate(ctx context.Context, identity *auth.Identity, req Request) (*Result, error) {
	if !Supported(req.Kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedReport, req.Kind)
	}

	rng, err := resolveRange(s.now(), req.Period, req.From, req.To)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"start_date": rng.Start.UTC().Format(rfc3339Milli),
		"end_date":   rng.End.UTC().Format(rfc3339Milli),
	}
	if req.StoreID != "" {
		params["store_id"] = req.StoreID
	}

	var procedure string
	args := []interface{}{params["start_date"], params["end_date"]}

	switch req.Kind {
	case KindTopProducts:
		limit, err := normalizeLimit(req.Limit)
		if err != nil {
			return nil, err
		}
		params["limit"] = limit
		procedure = procTopProducts
		args = append(args, limit, nullableStore(req.StoreID))
	case KindSalesByCategory:
		procedure = procSalesByCategory
		args = append(args, nullableStore(req.StoreID))
	case KindSalesSummary:
		procedure = procSalesSummary
		args = append(args, nullableStore(req.StoreID))
	}

	data, err := s.dispatcher.Invoke(ctx, procedure, args)
	if err != nil {
		return nil, err
	}

	if s.audit != nil && identity != nil {
		s.audit.Record(&models.ReportAudit{
			RequestedBy: identity.UserID,
			ReportName:  string(req.Kind),
			Params:      models.ParamsMap(params),
			Format:      "json",
		})
	}

	return &Result{
		Report:      string(req.Kind),
		Params:      params,
		GeneratedAt: s.now().UTC(),
		Data:        data,
	}, nil
}

// normalizeLimit clamps a numeric limit to [minLimit, maxLimit] and
// defaults non-numeric or absent values to defaultLimit. A fractional
// number is a caller error rather than something to round silently.
func normalizeLimit(raw interface{}) (int, error) {
	var limit int
	switch v := raw.(type) {
	case nil:
		return defaultLimit, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidLimit, v)
		}
		limit = int(v)
	case int:
		limit = v
	case int64:
		limit = int(v)
	default:
		// Non-numeric input (string, bool, object) falls back to the default
		return defaultLimit, nil
	}

	if limit < minLimit {
		limit = minLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

// nullableStore renders the optional store filter as SQL NULL when unset.
func nullableStore(storeID string) interface{} {
	if storeID == "" {
		return nil
	}
	return storeID
}
