package models

// Request models
type LoginRequest struct {
	Pin string `json:"pin" binding:"required"`
}

type CreateSheetRequest struct {
	Name    string   `json:"name" binding:"required"`
	Type    string   `json:"type" binding:"required,oneof=default custom"`
	Columns []string `json:"columns"`
}

type AddRecordRequest struct {
	// Default-schema fields
	Username  string   `json:"username"`
	DiscordID string   `json:"discordId"`
	TxID      string   `json:"txid"`
	Plan      string   `json:"plan"`
	Amount    *float64 `json:"amount"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Months    int      `json:"months"`

	// Custom-schema field values keyed by column name
	Values map[string]string `json:"values"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type SheetInfo struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Columns []string `json:"columns"`
}

type SheetListResponse struct {
	Status string      `json:"status"`
	Sheets []SheetInfo `json:"sheets"`
}

type SheetResponse struct {
	Status string    `json:"status"`
	Sheet  SheetInfo `json:"sheet"`
}

// RecordView is one record as the dashboard renders it: the flattened
// field set plus the lifecycle classification computed for this read.
type RecordView struct {
	ID            string                 `json:"id"`
	Fields        map[string]interface{} `json:"fields"`
	Status        string                 `json:"status"`
	DaysRemaining int                    `json:"daysRemaining"`
}

// Stats summarizes the active sheet for the dashboard cards.
type Stats struct {
	TotalRevenue  float64 `json:"totalRevenue"`
	ActiveCount   int     `json:"activeCount"`
	ExpiringCount int     `json:"expiringCount"`
	ExpiredCount  int     `json:"expiredCount"`
}

type RecordListResponse struct {
	Status  string       `json:"status"`
	Sheet   string       `json:"sheet"`
	Schema  Schema       `json:"schema"`
	Records []RecordView `json:"records"`
	Stats   Stats        `json:"stats"`
}

type RecordResponse struct {
	Status string `json:"status"`
	Record Record `json:"record"`
	// Synced reports whether the push to the remote collaborator
	// succeeded. The local change is kept either way.
	Synced bool `json:"synced"`
}

type InvoiceResponse struct {
	Status      string  `json:"status"`
	Receipt     string  `json:"receipt"`
	BilledTo    string  `json:"billedTo"`
	TxID        string  `json:"txid"`
	Plan        string  `json:"plan"`
	PeriodStart string  `json:"periodStart"`
	PeriodEnd   string  `json:"periodEnd"`
	Amount      float64 `json:"amount"`
	IssuedAt    string  `json:"issuedAt"`
}

type StatusResponse struct {
	Status       string `json:"status"`
	Mode         string `json:"mode"`
	Connected    bool   `json:"connected"`
	LastSyncedAt string `json:"lastSyncedAt,omitempty"`
	ActiveSheet  string `json:"activeSheet,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
