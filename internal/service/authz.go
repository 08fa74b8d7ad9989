package service

const (
	RoleTenant        = "TENANT"
	RoleLandlord      = "LANDLORD"
	RoleAdministrator = "ADMIN"
)

// isOwnerOrAdmin is the access guard for landlord-only operations.
// Resource existence must already have been established by the caller so
// absent resources read as not-found rather than forbidden.
func isOwnerOrAdmin(actorID, actorRole, ownerID string) bool {
	if actorID == "" {
		return false
	}
	return actorID == ownerID || actorRole == RoleAdministrator
}
