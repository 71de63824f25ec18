package models

// Role is the marketplace role of an account.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleFarmer   Role = "farmer"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleCustomer, RoleFarmer, RoleAdmin}
}

// Valid reports whether r is part of the role enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleFarmer, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is a marketplace account. Accounts are created by the account system; this service only
// reads them and lets the owner edit profile fields.
type User struct {
	BaseModel

	FullName     string `gorm:"type:varchar(120);not null" json:"full_name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string `gorm:"type:varchar(32)" json:"phone"`
	Role         Role   `gorm:"type:varchar(16);not null;default:'customer';index" json:"role"`
	ProfileImage string `gorm:"type:text" json:"profile_image"`
	Locale       string `gorm:"type:varchar(8);not null;default:'en'" json:"locale"`
	IsActive     bool   `gorm:"not null" json:"is_active"`
}
