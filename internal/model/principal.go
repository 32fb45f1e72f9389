package model

import "github.com/google/uuid"

type Role string

const (
	RoleOperator Role = "OPERATOR"
	RoleCarrier  Role = "CARRIER"
)

// Principal identifies the authenticated caller of a command.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsOperator() bool {
	return p.Role == RoleOperator
}

func (p Principal) IsCarrier() bool {
	return p.Role == RoleCarrier
}
