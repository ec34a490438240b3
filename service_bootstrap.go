package gatekit

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// BootstrapReport counts what a Bootstrap run changed. A second run over the
// same registry reports zeros.
type BootstrapReport struct {
	PermissionsCreated int
	RolesCreated       int
	GrantsAdded        int
}

// Changed reports whether the run wrote anything.
func (r BootstrapReport) Changed() bool {
	return r.PermissionsCreated+r.RolesCreated+r.GrantsAdded > 0
}

// Bootstrap makes the store hold every permission and role declared in the
// registry, plus the superadmin role bundling every declared permission.
// It only ever adds: permissions, roles and grants that are no longer
// declared are left in place.
//
// Example:
//
//	registry := gatekit.NewRegistry()
//	registry.Module("notes").Permission("view", "Read notes")
//	report, err := service.Bootstrap(ctx, registry)
func (s *Service) Bootstrap(ctx context.Context, registry *Registry) (BootstrapReport, error) {
	var report BootstrapReport
	if err := registry.Validate(); err != nil {
		return report, NewError(ErrMisconfiguration, "invalid registry").WithOp("Bootstrap").WithCause(err)
	}

	permissions := registry.Permissions()
	for _, p := range permissions {
		_, created, err := s.ensurePermission(ctx, p.Name, p.Description)
		if err != nil {
			return report, fmt.Errorf("ensure permission %q: %w", p.Name, err)
		}
		if created {
			report.PermissionsCreated++
		}
	}

	roles := map[string][]string{SuperAdminRole: registry.PermissionNames()}
	descriptions := map[string]string{SuperAdminRole: "Holds every registered permission"}
	for _, rd := range registry.Roles() {
		roles[rd.Name()] = rd.GetGrants()
		descriptions[rd.Name()] = rd.Description()
	}

	for _, name := range sortedKeys(roles) {
		_, created, err := s.ensureRole(ctx, name, descriptions[name])
		if err != nil {
			return report, fmt.Errorf("ensure role %q: %w", name, err)
		}
		if created {
			report.RolesCreated++
		}
		for _, perm := range roles[name] {
			added, err := s.addPermissionToRole(ctx, name, perm)
			if err != nil {
				return report, fmt.Errorf("grant %q to role %q: %w", perm, name, err)
			}
			if added {
				report.GrantsAdded++
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"permissions_created": report.PermissionsCreated,
		"roles_created":       report.RolesCreated,
		"grants_added":        report.GrantsAdded,
		"request_id":          GetRequestID(ctx),
	}).Info("rbac bootstrap complete")

	return report, nil
}
