package workflow

// Trigger represents a request that may change or be refused by the SOV state
type Trigger string

const (
	// TriggerEdit changes the financial shape: add, remove, value change, bulk replace
	TriggerEdit Trigger = "EDIT"
	// TriggerEditDetails changes non-financial fields: description, item number, order
	TriggerEditDetails Trigger = "EDIT_DETAILS"
	TriggerSave        Trigger = "SAVE"
	TriggerApprove     Trigger = "APPROVE"
	TriggerStartDraw   Trigger = "START_DRAW"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
