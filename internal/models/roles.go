// internal/models/roles.go

package models

// UserRole представляет роль пользователя в системе
type UserRole string

// Константы для ролей
const (
	RoleCitizen   UserRole = "citizen"
	RoleAuthority UserRole = "authority"
	RoleAdmin     UserRole = "admin"
)

// IsValid проверяет валидность роли
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCitizen, RoleAuthority, RoleAdmin:
		return true
	}
	return false
}

// RequiresSpecialty — роль authority обязана иметь специализацию
func (r UserRole) RequiresSpecialty() bool {
	return r == RoleAuthority
}

// CanManageUsers проверяет, может ли роль управлять учётными записями
func (r UserRole) CanManageUsers() bool {
	return r == RoleAdmin
}

// String возвращает строковое представление роли
func (r UserRole) String() string {
	return string(r)
}

// AllRoles возвращает список всех доступных ролей
func AllRoles() []UserRole {
	return []UserRole{
		RoleCitizen,
		RoleAuthority,
		RoleAdmin,
	}
}

// RoleFromString конвертирует string в UserRole
func RoleFromString(role string) (UserRole, bool) {
	r := UserRole(role)
	if r.IsValid() {
		return r, true
	}
	return "", false
}
