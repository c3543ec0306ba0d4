package rbac

// HasElevatedAccess reports whether the user is a manager or admin.
func HasElevatedAccess(user Subject) bool {
	return user.Role == RoleManager || user.Role == RoleAdmin
}

// HasAdminAccess reports whether the user is an admin.
func HasAdminAccess(user Subject) bool {
	return user.Role == RoleAdmin
}

// CanManage: admins manage anyone, managers manage employees only.
func CanManage(actor, target Subject) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return !HasElevatedAccess(target)
	default:
		return false
	}
}

// CanDelete follows CanManage but never allows deleting oneself.
func CanDelete(actor, target Subject) bool {
	if actor.ID == target.ID {
		return false
	}
	return CanManage(actor, target)
}

// CanEdit always allows self edits. Otherwise admins edit anyone and
// managers edit anyone but admins.
func CanEdit(actor, target Subject) bool {
	if actor.ID == target.ID {
		return true
	}
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return target.Role != RoleAdmin
	default:
		return false
	}
}

// AvailableRoles lists the ranks the actor may assign, lowest first.
func AvailableRoles(actor Subject) []Role {
	switch actor.Role {
	case RoleAdmin:
		return []Role{RoleEmployee, RoleManager, RoleAdmin}
	case RoleManager:
		return []Role{RoleEmployee, RoleManager}
	default:
		return []Role{RoleEmployee}
	}
}

// CanAssign reports whether role is among AvailableRoles(actor).
func CanAssign(actor Subject, role Role) bool {
	for _, r := range AvailableRoles(actor) {
		if r == role {
			return true
		}
	}
	return false
}
