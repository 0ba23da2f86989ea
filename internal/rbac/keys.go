package rbac

// Permission keys referenced from code. Keys are immutable once
// referenced; additional keys can be registered administratively.
const (
	PermManageUsers          = "MANAGE_USERS"
	PermManagePermissions    = "MANAGE_PERMISSIONS"
	PermApproveCustomer      = "APPROVE_CUSTOMER"
	PermApproveTransaction   = "APPROVE_TRANSACTION"
	PermApproveArtist        = "APPROVE_ARTIST"
	PermApproveAccessRequest = "APPROVE_ACCESS_REQUEST"
	PermDeleteRecord         = "DELETE_RECORD"
)

// WellKnownPermissions seeds the registry on first boot.
var WellKnownPermissions = map[string]string{
	PermManageUsers:          "Provision, deactivate, and reassign principals",
	PermManagePermissions:    "Replace the permission set of a role",
	PermApproveCustomer:      "Approve or reject pending customer records",
	PermApproveTransaction:   "Approve or reject pending transaction records",
	PermApproveArtist:        "Approve or reject pending artist records",
	PermApproveAccessRequest: "Approve or reject access requests",
	PermDeleteRecord:         "Soft-delete workflow records",
}
