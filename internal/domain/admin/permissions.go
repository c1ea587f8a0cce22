package admin

// Permission is a resource/action pair checked against an admin's role.
type Permission struct {
	Resource string
	Action   string
}

var (
	PermDecideAdmission = Permission{Resource: "admission", Action: "decide"}
	PermManageRoster    = Permission{Resource: "roster", Action: "manage"}
	PermTriageTickets   = Permission{Resource: "tickets", Action: "triage"}
	PermViewStats       = Permission{Resource: "stats", Action: "view"}
	PermExportMembers   = Permission{Resource: "members", Action: "export"}
)
