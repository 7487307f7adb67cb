package domain

// Principal is what the route/auth collaborator knows about the current user.
type Principal struct {
	Authenticated bool   `json:"authenticated"`
	Role          string `json:"role,omitempty"`
}

const RoleAdmin = "admin"
