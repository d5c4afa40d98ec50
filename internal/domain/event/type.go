package event

// Type identifies the type of domain event
type Type string

const (
	TypeSOVSaved      Type = "sov.saved"
	TypeSOVApproved   Type = "sov.approved"
	TypeDrawCreated   Type = "draw.created"
	TypeBillSubmitted Type = "bill.submitted"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeSOVSaved,
		TypeSOVApproved,
		TypeDrawCreated,
		TypeBillSubmitted:
		return true
	default:
		return false
	}
}
