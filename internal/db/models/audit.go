package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ParamsMap stores report parameters as a JSON document
type ParamsMap map[string]interface{}

// Scan implements sql.Scanner for reading from database
func (p *ParamsMap) Scan(value any) error {
	if value == nil {
		*p = make(ParamsMap)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan ParamsMap: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(bytes, p)
}

// Value implements driver.Valuer for writing to database
func (p ParamsMap) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	bytes, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// ReportAudit is the best-effort record of a generated report. Writes are
// fire-and-forget; the table is advisory history, not a ledger.
type ReportAudit struct {
	bun.BaseModel `bun:"table:report_requests,alias:rr"`

	ID          string    `bun:"id,pk,type:uuid"`
	RequestedBy string    `bun:"requested_by,notnull,type:uuid"`
	ReportName  string    `bun:"report_name,notnull"`
	Params      ParamsMap `bun:"params,type:jsonb,notnull,default:'{}'"`
	Format      string    `bun:"format,notnull,default:'json'"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
