package domain

import (
	"slices"
	"time"
)

type Role string

const (
	RoleViewer    Role = "访客"
	RoleScheduler Role = "排课员"
	RoleAdmin     Role = "管理员"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

var Roles = []Role{RoleViewer, RoleScheduler, RoleAdmin}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}
