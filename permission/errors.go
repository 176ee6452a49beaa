package permission

import "errors"

var (
	ErrInvalidRole         = errors.New("role id is required")
	ErrRoleExists          = errors.New("role already exists")
	ErrRoleNotFound        = errors.New("role not found")
	ErrRoleCycle           = errors.New("role inheritance cycle")
	ErrRoleInUse           = errors.New("role is inherited by another role")
	ErrInvalidPermission   = errors.New("permission id, resource and action are required")
	ErrPermissionExists    = errors.New("permission already exists")
	ErrPermissionNotFound  = errors.New("permission not found")
	ErrUnknownOperator     = errors.New("unknown condition operator")
	ErrUnsupportedOperator = errors.New("operator not supported for condition")
	ErrUnknownCondition    = errors.New("unknown condition kind")
)
