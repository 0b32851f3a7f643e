package models

// AssignmentEntry links a user to an entity. Role is meaningful only when
// the owning entity is a project; tasks and subtasks carry assignments
// without roles.
type AssignmentEntry struct {
	EntityKey string `json:"entityKey"`
	UserID    string `json:"userId"`
	Role      string `json:"role,omitempty"`
}

// SupportsRoles reports whether an entity type carries assignment roles.
func SupportsRoles(t EntityType) bool {
	return t == TypeProject
}
