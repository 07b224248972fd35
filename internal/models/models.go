package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Schema types
const (
	SchemaDefault = "default"
	SchemaCustom  = "custom"
)

// MaxCustomColumns is the upper bound on user-defined columns per sheet.
const MaxCustomColumns = 5

// Lifecycle classifications derived from a record's end date
const (
	StatusActive        = "Active"
	StatusExpiringSoon  = "Expiring Soon"
	StatusExpired       = "Expired"
	StatusNotApplicable = "Not Applicable"
)

// FilterAll matches every lifecycle bucket.
const FilterAll = "All"

// Plan tiers
const (
	TierDiamond  = "Diamond"
	TierPlatinum = "Platinum"
	TierPremium  = "Premium"
)

// TierPrices maps each plan tier to its canonical monthly price. The price
// is copied into the record at creation time and is an independent,
// editable value afterwards.
var TierPrices = map[string]float64{
	TierDiamond:  100,
	TierPlatinum: 60,
	TierPremium:  20,
}

// Field keys and spreadsheet column headers for default-schema sheets.
// Order matters: the remote collaborator maps record fields to columns
// positionally using these two lists.
var (
	DefaultKeys    = []string{"plan", "username", "discordId", "txid", "amount", "startDate", "endDate"}
	DefaultHeaders = []string{"Tier", "Username", "Discord ID", "TxID", "Amount", "Start Date", "End Date"}
)

// Schema describes the field shape shared by every record in a sheet.
type Schema struct {
	Type    string   `json:"type"`
	Columns []string `json:"columns"`
}

// IsCustom reports whether the schema uses user-defined columns.
func (s Schema) IsCustom() bool {
	return s.Type == SchemaCustom
}

// DefaultSchema returns the fixed subscription-tracking schema.
func DefaultSchema() Schema {
	return Schema{Type: SchemaDefault, Columns: []string{}}
}

// ColumnKeys returns the record field names in column order.
func ColumnKeys(schema Schema) []string {
	if schema.IsCustom() {
		return schema.Columns
	}
	return DefaultKeys
}

// ColumnHeaders returns the spreadsheet header labels in column order.
func ColumnHeaders(schema Schema) []string {
	if schema.IsCustom() {
		return schema.Columns
	}
	return DefaultHeaders
}

// Sheet is a named collection of records sharing one schema. The schema is
// fixed at creation and never migrated.
type Sheet struct {
	Name       string         `db:"name" json:"name"`
	SchemaType string         `db:"schema_type" json:"type"`
	Columns    pq.StringArray `db:"columns" json:"columns"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// Schema returns the sheet's schema descriptor.
func (s *Sheet) Schema() Schema {
	return Schema{Type: s.SchemaType, Columns: []string(s.Columns)}
}

// DefaultFields is the fixed field set for default-schema records.
type DefaultFields struct {
	Username  string  `json:"username"`
	DiscordID string  `json:"discordId"`
	TxID      string  `json:"txid"`
	Plan      string  `json:"plan"`
	Amount    float64 `json:"amount"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
}

// Record is one subscriber/entry. Exactly one of Default or Custom is set,
// selected by the owning sheet's schema type.
type Record struct {
	ID      string            `json:"id"`
	Default *DefaultFields    `json:"default,omitempty"`
	Custom  map[string]string `json:"custom,omitempty"`
}

// EndDate returns the record's end date string, or "" when the record has
// no date concept (custom schema, or a blank default field).
func (r Record) EndDate() string {
	if r.Default != nil {
		return r.Default.EndDate
	}
	return ""
}

// Flatten returns the wire/storage shape of the record under the given
// schema: the default field set plus id, or id plus the schema's declared
// columns only. Declared columns missing from the record flatten to "".
func (r Record) Flatten(schema Schema) map[string]interface{} {
	out := map[string]interface{}{"id": r.ID}

	if schema.IsCustom() {
		for _, col := range schema.Columns {
			out[col] = r.Custom[col]
		}
		return out
	}

	f := r.Default
	if f == nil {
		f = &DefaultFields{}
	}
	out["plan"] = f.Plan
	out["username"] = f.Username
	out["discordId"] = f.DiscordID
	out["txid"] = f.TxID
	out["amount"] = f.Amount
	out["startDate"] = f.StartDate
	out["endDate"] = f.EndDate
	return out
}

// RecordFromFlat rebuilds a record from its wire/storage shape. Fields
// outside the schema (plus id) are dropped; missing fields become empty.
func RecordFromFlat(flat map[string]interface{}, schema Schema) Record {
	rec := Record{ID: stringValue(flat["id"])}

	if schema.IsCustom() {
		rec.Custom = make(map[string]string, len(schema.Columns))
		for _, col := range schema.Columns {
			rec.Custom[col] = stringValue(flat[col])
		}
		return rec
	}

	rec.Default = &DefaultFields{
		Username:  stringValue(flat["username"]),
		DiscordID: stringValue(flat["discordId"]),
		TxID:      stringValue(flat["txid"]),
		Plan:      stringValue(flat["plan"]),
		Amount:    floatValue(flat["amount"]),
		StartDate: stringValue(flat["startDate"]),
		EndDate:   stringValue(flat["endDate"]),
	}
	return rec
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func floatValue(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
