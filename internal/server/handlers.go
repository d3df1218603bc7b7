package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/merchstats/reportgate/internal/auth"
	gatemiddleware "github.com/merchstats/reportgate/internal/middleware"
	"github.com/merchstats/reportgate/internal/reports"
)

// ReportHandlers serves the reporting endpoints.
type ReportHandlers struct {
	reports *reports.Service
	started time.Time
}

// NewReportHandlers creates the handler set over the report service.
func NewReportHandlers(svc *reports.Service) *ReportHandlers {
	return &ReportHandlers{
		reports: svc,
		started: time.Now(),
	}
}

// generateRequest is the wire shape of a report request. Report accepts
// either key; the older clients send reportType.
type generateRequest struct {
	Report     string         `json:"report"`
	ReportType string         `json:"reportType"`
	Params     generateParams `json:"params"`
}

type generateParams struct {
	Period  string      `json:"period"`
	From    string      `json:"from"`
	To      string      `json:"to"`
	Limit   interface{} `json:"limit"`
	StoreID string      `json:"store_id"`
}

type schemaReport struct {
	Report string   `json:"report"`
	Params []string `json:"params"`
}

// HandleSchema lists the supported reports and their accepted parameters.
func (h *ReportHandlers) HandleSchema(w http.ResponseWriter, _ *http.Request) {
	out := make([]schemaReport, 0, len(reports.Kinds()))
	for _, kind := range reports.Kinds() {
		params := []string{"period", "from", "to", "store_id"}
		if kind == reports.KindTopProducts {
			params = append(params, "limit")
		}
		out = append(out, schemaReport{Report: string(kind), Params: params})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": out})
}

// HandleStatus reports liveness, the available report kinds, and process uptime.
func (h *ReportHandlers) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"available_reports": reports.Kinds(),
		"uptime_seconds":    int64(time.Since(h.started).Seconds()),
	})
}

// HandleGenerate runs one report for an authenticated administrator.
func (h *ReportHandlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		gatemiddleware.WriteError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	name := body.Report
	if name == "" {
		name = body.ReportType
	}
	if name == "" {
		gatemiddleware.WriteError(w, http.StatusBadRequest, "report_required")
		return
	}

	var identity *auth.Identity
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		identity = &id
	}

	result, err := h.reports.Generate(r.Context(), identity, reports.Request{
		Kind:    reports.Kind(name),
		Period:  body.Params.Period,
		From:    body.Params.From,
		To:      body.Params.To,
		Limit:   body.Params.Limit,
		StoreID: body.Params.StoreID,
	})
	if err != nil {
		status, code := generateErrorResponse(err)
		if status == http.StatusInternalServerError {
			log.Printf("report generation failed: %v", err)
		}
		gatemiddleware.WriteError(w, status, code)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// generateErrorResponse maps report service errors onto the wire contract.
// Upstream procedure failures and timeouts surface as query_failed so the
// caller sees one stable code for "the data service did not answer".
func generateErrorResponse(err error) (int, string) {
	var rpcErr *reports.RPCError
	switch {
	case errors.Is(err, reports.ErrUnsupportedReport):
		return http.StatusBadRequest, "report_not_supported"
	case errors.Is(err, reports.ErrInvalidFromDate):
		return http.StatusBadRequest, "invalid_from_date"
	case errors.Is(err, reports.ErrInvalidToDate):
		return http.StatusBadRequest, "invalid_to_date"
	case errors.Is(err, reports.ErrInvalidLimit):
		return http.StatusBadRequest, "invalid_limit"
	case errors.Is(err, reports.ErrRPCTimeout):
		return http.StatusBadRequest, "query_failed"
	case errors.As(err, &rpcErr):
		return http.StatusBadRequest, "query_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
