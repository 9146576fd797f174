package domain

type Group struct {
	ID       string
	TenantID string
	Name     string
}

type GroupMember struct {
	ID      string
	GroupID string
	UserID  string
}

// ApplicationRole is a role defined by one application. Default roles are
// granted to every user of the application.
type ApplicationRole struct {
	ID            string
	ApplicationID string
	Name          string
	IsDefault     bool
	Description   string
}

type GroupApplicationRole struct {
	ID                string
	GroupID           string
	ApplicationRoleID string
}
