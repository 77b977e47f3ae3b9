package models

import "time"

type Role string

const (
	RoleAdministrator          Role = "Administrator"
	RoleOperationsManager      Role = "OperationsManager"
	RoleEnvironmentalScientist Role = "EnvironmentalScientist"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleOperationsManager, RoleEnvironmentalScientist:
		return true
	}
	return false
}

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Role         Role       `json:"role" gorm:"not null;default:EnvironmentalScientist"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (User) TableName() string { return "users" }
