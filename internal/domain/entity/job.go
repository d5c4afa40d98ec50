package entity

import "fmt"

// JobKey scopes every SOV and draw to a company and job
type JobKey struct {
	CompanyID string `json:"company_id"`
	JobID     string `json:"job_id"`
}

// String returns "company/job" for logging
func (k JobKey) String() string {
	return fmt.Sprintf("%s/%s", k.CompanyID, k.JobID)
}

// IsZero reports whether either component is missing
func (k JobKey) IsZero() bool {
	return k.CompanyID == "" || k.JobID == ""
}

// Actor is the authenticated caller as resolved by the session layer
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}
