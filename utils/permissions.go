package utils

// Role capability checks. Roles are a closed set ("admin", "editor",
// "viewer") resolved at login; everything here is a pure function of the
// role string so callers can gate behavior without another lookup:
//
//   - admin: full access, including user and obra administration
//   - editor: can create and modify sessions, reports and items
//   - viewer: read-only; edit-gated surfaces answer with a fallback message
//
// An unknown or empty role is treated as viewer.

const (
	CapabilityEdit  = "edit"
	CapabilityAdmin = "admin"
)

// CanEdit reports whether the role may create or modify data.
func CanEdit(role string) bool {
	return role == "admin" || role == "editor"
}

// IsAdmin reports whether the role has administrative access.
func IsAdmin(role string) bool {
	return role == "admin"
}

// RoleLabel is the display label shown to users for a role.
func RoleLabel(role string) string {
	switch role {
	case "admin":
		return "Administrador"
	case "editor":
		return "Editor"
	default:
		return "Visualizador"
	}
}

// CheckAccess resolves a required capability against a role. When access is
// denied it returns a user-facing fallback message naming the caller's role
// label, so gated surfaces can explain themselves instead of answering with
// nothing.
func CheckAccess(role, capability string) (allowed bool, fallback string) {
	switch capability {
	case CapabilityAdmin:
		allowed = IsAdmin(role)
	case CapabilityEdit:
		allowed = CanEdit(role)
	}
	if allowed {
		return true, ""
	}
	return false, "Seu perfil (" + RoleLabel(role) + ") não possui permissão para esta ação"
}
