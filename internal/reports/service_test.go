package reports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/merchstats/reportgate/internal/auth"
	"github.com/merchstats/reportgate/internal/db/models"
)

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Invoke(ctx context.Context, procedure string, args []interface{}) ([]Row, error) {
	called := m.Called(ctx, procedure, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	return called.Get(0).([]Row), called.Error(1)
}

// recordingSink captures audit records handed to the sink.
type recordingSink struct {
	mu      sync.Mutex
	records []*models.ReportAudit
}

func (s *recordingSink) Record(record *models.ReportAudit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func newTestService(d Dispatcher) *Service {
	svc := NewService(d)
	// Wednesday; the previous ISO week is Jun 3 through Jun 9
	svc.now = func() time.Time { return time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_GenerateTopProducts(t *testing.T) {
	dispatcher := new(MockDispatcher)
	sink := &recordingSink{}
	svc := newTestService(dispatcher).WithAuditSink(sink)

	rows := []Row{
		{"product_id": "p1", "units": 42},
		{"product_id": "p2", "units": 17},
	}
	dispatcher.On("Invoke", mock.Anything, "report_top_selling_products", []interface{}{
		"2024-06-03T00:00:00.000Z",
		"2024-06-09T23:59:59.999Z",
		3,
		nil,
	}).Return(rows, nil)

	identity := &auth.Identity{UserID: "user-1", IsAdmin: true}
	result, err := svc.Generate(context.Background(), identity, Request{
		Kind:   KindTopProducts,
		Period: "last_week",
	})
	require.NoError(t, err)

	assert.Equal(t, "top_products", result.Report)
	assert.Equal(t, rows, result.Data)
	assert.Equal(t, 3, result.Params["limit"])
	assert.Equal(t, "2024-06-03T00:00:00.000Z", result.Params["start_date"])
	assert.Equal(t, "2024-06-09T23:59:59.999Z", result.Params["end_date"])

	require.Equal(t, 1, sink.count())
	assert.Equal(t, "user-1", sink.records[0].RequestedBy)
	assert.Equal(t, "top_products", sink.records[0].ReportName)

	dispatcher.AssertExpectations(t)
}

func TestService_GenerateSalesSummaryWithStoreFilter(t *testing.T) {
	dispatcher := new(MockDispatcher)
	svc := newTestService(dispatcher)

	dispatcher.On("Invoke", mock.Anything, "report_sales_summary", []interface{}{
		"2024-01-01T00:00:00.000Z",
		"2024-01-31T23:59:59.999Z",
		"store-7",
	}).Return([]Row{{"total": 1234.5}}, nil)

	result, err := svc.Generate(context.Background(), nil, Request{
		Kind:    KindSalesSummary,
		From:    "2024-01-01",
		To:      "2024-01-31",
		StoreID: "store-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "store-7", result.Params["store_id"])

	dispatcher.AssertExpectations(t)
}

func TestService_LimitNormalization(t *testing.T) {
	tests := []struct {
		name  string
		raw   interface{}
		want  int
		fails bool
	}{
		{"absent defaults to 3", nil, 3, false},
		{"in range", float64(10), 10, false},
		{"clamped low", float64(0), 1, false},
		{"clamped negative", float64(-5), 1, false},
		{"clamped high", float64(500), 100, false},
		{"non-numeric string defaults", "twenty", 3, false},
		{"boolean defaults", true, 3, false},
		{"fractional rejected", 2.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeLimit(tt.raw)
			if tt.fails {
				assert.ErrorIs(t, err, ErrInvalidLimit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_UnsupportedReport(t *testing.T) {
	svc := newTestService(new(MockDispatcher))

	_, err := svc.Generate(context.Background(), nil, Request{Kind: "profit_margins"})
	assert.ErrorIs(t, err, ErrUnsupportedReport)
}

func TestService_InvalidDatePassthrough(t *testing.T) {
	svc := newTestService(new(MockDispatcher))

	_, err := svc.Generate(context.Background(), nil, Request{
		Kind: KindSalesSummary,
		From: "not-a-date",
		To:   "2024-01-01",
	})
	assert.ErrorIs(t, err, ErrInvalidFromDate)
}

func TestService_RPCOutcomeReturnedUnchanged(t *testing.T) {
	dispatcher := new(MockDispatcher)
	sink := &recordingSink{}
	svc := newTestService(dispatcher).WithAuditSink(sink)

	rpcErr := &RPCError{Procedure: "report_sales_summary", Message: "relation does not exist"}
	dispatcher.On("Invoke", mock.Anything, "report_sales_summary", mock.Anything).Return(nil, rpcErr)

	_, err := svc.Generate(context.Background(), &auth.Identity{UserID: "user-1"}, Request{
		Kind:   KindSalesSummary,
		Period: "last_week",
	})

	var got *RPCError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, rpcErr, got)
	assert.Equal(t, 0, sink.count(), "no audit record on failure")
}

func TestService_NoAuditWithoutIdentity(t *testing.T) {
	dispatcher := new(MockDispatcher)
	sink := &recordingSink{}
	svc := newTestService(dispatcher).WithAuditSink(sink)

	dispatcher.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return([]Row{}, nil)

	_, err := svc.Generate(context.Background(), nil, Request{Kind: KindSalesByCategory, Period: "last_week"})
	require.NoError(t, err)
	assert.Equal(t, 0, sink.count())
}

func TestService_TimeoutDistinctFromError(t *testing.T) {
	dispatcher := new(MockDispatcher)
	svc := newTestService(dispatcher)

	dispatcher.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: procedure report_sales_summary exceeded 10s", ErrRPCTimeout))

	_, err := svc.Generate(context.Background(), nil, Request{Kind: KindSalesSummary, Period: "last_week"})
	assert.ErrorIs(t, err, ErrRPCTimeout)

	var rpcErr *RPCError
	assert.False(t, errors.As(err, &rpcErr))
}
