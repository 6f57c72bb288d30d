package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
	RoleUndefined Role = "UNDEFINED"
)

// Authority returns the scope value encoded into access tokens.
func (r Role) Authority() string { return "ROLE_" + string(r) }

func ParseRole(v string) Role {
	switch Role(v) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(v)
	default:
		return RoleUndefined
	}
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// RegisterUser builds a new principal with the default role. The password
// must already be hashed by the caller.
func RegisterUser(username, email, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    time.Now(),
	}
}
