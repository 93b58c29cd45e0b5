// Package api implements the HTTP handlers of the schedule scoring service.
package api

import (
    "net/http"
    "strings"
)

const defaultTenant = "t_demo"

type Principal struct {
	Tenant string
	Role   string // admin, planner
}

// getPrincipal extracts tenant and role from the X-Tenant-Id and X-Role
// headers set by the fronting gateway.
func (s *Server) getPrincipal(r *http.Request) Principal {
    tenant := strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
    role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Role")))
    if tenant == "" {
        tenant = defaultTenant
    }
    if role == "" {
        role = "admin"
    }
    return Principal{Tenant: tenant, Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }
