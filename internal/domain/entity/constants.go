package entity

// Workflow status constants for SOVLineItem
const (
	WorkflowStatusDraft    = "draft"
	WorkflowStatusApproved = "approved"
)

// Draw status constants. Any status other than draft is treated as issued
const (
	DrawStatusDraft  = "draft"
	DrawStatusIssued = "issued"
	DrawStatusVoided = "voided"
)

// Bill status constants
const (
	BillStatusDraft    = "draft"
	BillStatusPending  = "pending"
	BillStatusApproved = "approved"
	BillStatusPaid     = "paid"
	BillStatusRejected = "rejected"
)

// Commitment kinds
const (
	CommitmentKindSubcontract   = "subcontract"
	CommitmentKindPurchaseOrder = "purchase_order"
)

// Role constants for the acting user
const (
	RoleAdmin        = "admin"
	RoleController   = "controller"
	RoleCompanyAdmin = "company_admin"
	RoleSuperAdmin   = "super_admin"
	RoleProjectMgr   = "project_manager"
	RoleViewer       = "viewer"
)
