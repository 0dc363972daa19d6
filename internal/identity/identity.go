// Package identity consumes the opaque identity the upstream auth provider
// attaches to each request. The engine performs no authentication itself; it
// trusts the gateway-injected headers as given.
package identity

import (
	"context"
	"net/http"
	"strconv"
)

// Role distinguishes agents from back-office admins.
type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Identity is the per-request actor as supplied by the identity provider.
type Identity struct {
	AgentID    int64
	Role       Role
	IsApproved bool
}

type identityContextKey struct{}

// ContextWith stores the identity in context.
func ContextWith(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext extracts the identity from context.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// Header names populated by the upstream provider.
const (
	HeaderAgentID  = "X-Agent-ID"
	HeaderRole     = "X-Agent-Role"
	HeaderApproved = "X-Agent-Approved"
)

// Middleware parses the identity headers into the request context. Requests
// without an agent id are rejected; approval gating is left to the handlers
// because admins manage rates before their agency is approved.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentID, err := strconv.ParseInt(r.Header.Get(HeaderAgentID), 10, 64)
		if err != nil || agentID <= 0 {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		role := Role(r.Header.Get(HeaderRole))
		if role != RoleAdmin {
			role = RoleAgent
		}
		id := Identity{
			AgentID:    agentID,
			Role:       role,
			IsApproved: r.Header.Get(HeaderApproved) == "true",
		}
		next.ServeHTTP(w, r.WithContext(ContextWith(r.Context(), id)))
	})
}

// RequireAdmin guards admin-only routes.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok || id.Role != RoleAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
