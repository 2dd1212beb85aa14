package auth

import "net/http"

// Scopes understood by the tracker API.
const (
	ScopeActivitiesWrite = "activities:write"
	ScopeActivitiesRead  = "activities:read"
)

// Allowed reports whether claims may perform a request with the given method.
// Reads accept either scope; every other method needs write.
func Allowed(claims *Claims, method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return claims.HasScope(ScopeActivitiesRead) || claims.HasScope(ScopeActivitiesWrite)
	default:
		return claims.HasScope(ScopeActivitiesWrite)
	}
}
