// Package erp reads open deals and partners from an ERP accounting API and
// exposes each company as a schedule partition.
package erp

import "time"

// Deal is a transaction as returned by the deals endpoint.
type Deal struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	IssueDate   string    `json:"issue_date"` // YYYY-MM-DD
	DueDate     *string   `json:"due_date,omitempty"`
	Type        string    `json:"type"` // income or expense
	Status      string    `json:"status,omitempty"`
	Amount      int64     `json:"amount"`
	DueAmount   *int64    `json:"due_amount,omitempty"`
	RefNumber   *string   `json:"ref_number,omitempty"`
	PartnerID   *int64    `json:"partner_id,omitempty"`
	PartnerCode *string   `json:"partner_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Partner is a counterparty master record.
type Partner struct {
	ID        int64   `json:"id"`
	CompanyID int64   `json:"company_id"`
	Code      *string `json:"code,omitempty"`
	Name      string  `json:"name"`
}

// DealsResponse is the body of /api/1/deals.
type DealsResponse struct {
	Deals []Deal `json:"deals"`
}

// PartnersResponse is the body of /api/1/partners.
type PartnersResponse struct {
	Partners []Partner `json:"partners"`
}

// ErrorResponse is the error body returned by the API.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
