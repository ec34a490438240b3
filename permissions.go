package gatekit

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxRoleNameLength bounds role names.
	MaxRoleNameLength = 50
	// MaxPermissionNameLength bounds permission names.
	MaxPermissionNameLength = 100
)

// roleInput and permissionInput are validated before anything reaches the store.
type roleInput struct {
	Name        string `validate:"required,max=50,rolename"`
	Description string `validate:"max=1000"`
}

type permissionInput struct {
	Name        string `validate:"required,max=100,permname"`
	Description string `validate:"max=1000"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with gatekit's name rules registered:
//
//   - "permname" accepts "<module>.<action>" where both parts are identifiers
//     (letters, digits, underscore) and the action may itself be dotted
//   - "rolename" accepts identifiers, '-' and '_'
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("permname", func(fl validator.FieldLevel) bool {
			return validPermissionName(fl.Field().String())
		})
		_ = validate.RegisterValidation("rolename", func(fl validator.FieldLevel) bool {
			return validRoleName(fl.Field().String())
		})
	})
	return validate
}

// ValidatePermissionName checks that a permission name has the "<module>.<action>" shape.
//
// Examples:
//
//	ValidatePermissionName("notes.edit")        // nil
//	ValidatePermissionName("downloads.file.get") // nil
//	ValidatePermissionName("notes")             // ErrInvalidPermission
//	ValidatePermissionName("notes.*")           // ErrInvalidPermission, no wildcards
func ValidatePermissionName(name string) error {
	if err := Validator().Struct(permissionInput{Name: name}); err != nil {
		return NewError(ErrInvalidPermission, "permission must be <module>.<action> of at most 100 characters").
			WithPermission(name)
	}
	return nil
}

// ValidateRoleName checks that a role name is a short identifier.
func ValidateRoleName(name string) error {
	if err := Validator().Struct(roleInput{Name: name}); err != nil {
		return NewError(ErrInvalidName, "role name must be an identifier of at most 50 characters").
			WithRole(name)
	}
	return nil
}

// SplitPermission splits a permission name into module and action.
func SplitPermission(name string) (module, action string, ok bool) {
	module, action, ok = strings.Cut(name, ".")
	if !ok || module == "" || action == "" {
		return "", "", false
	}
	return module, action, true
}

// JoinPermission builds a permission name from a module and an action.
func JoinPermission(module, action string) string {
	return module + "." + action
}

func validPermissionName(name string) bool {
	if len(name) > MaxPermissionNameLength {
		return false
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, c := range part {
			if !isValidPermissionChar(c) {
				return false
			}
		}
	}
	return true
}

func validRoleName(name string) bool {
	if name == "" || len(name) > MaxRoleNameLength {
		return false
	}
	for _, c := range name {
		if !isValidPermissionChar(c) && c != '-' {
			return false
		}
	}
	return true
}

func isValidPermissionChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_'
}

// normalizeName trims surrounding whitespace from user supplied names.
func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
