package pipeline

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

// locateToken is the token-location rule of spec.md §4.12: the
// Authorization header verbatim, falling back to a case-insensitively
// named "authorization" cookie. An Authorization header present but
// empty is malformed rather than absent.
func locateToken(r *http.Request) (string, bool, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return header, true, nil
	}
	if _, present := r.Header["Authorization"]; present {
		return "", false, corerr.Expected(400, "malformed Authorization header")
	}

	for _, cookie := range r.Cookies() {
		if strings.EqualFold(cookie.Name, "authorization") {
			return cookie.Value, true, nil
		}
	}

	return "", false, nil
}

// runGate is C10 layer 5: resolve a token to a user id via the session
// backend, then enforce allowed_roles when the endpoint declares any.
// A caller that passes inject_user_id=true gets user_id folded into
// params as an Internal value before the executor ever sees it.
func runGate(ctx context.Context, r *http.Request, session domain.SessionBackend, role domain.RoleBackend, sessionConn, roleConn domain.Connection, endpoint domain.Endpoint, input domain.ExecuteInput) (domain.ExecuteInput, error) {
	token, present, err := locateToken(r)
	if err != nil {
		return input, err
	}
	if !present {
		return input, corerr.Expected(401, "missing authentication token")
	}
	if session == nil {
		return input, corerr.Expected(500, "no session backend configured")
	}

	userID, ok, err := session.Check(ctx, sessionConn, token)
	if err != nil {
		return input, corerr.Wrap(500, "session check failed", err)
	}
	if !ok {
		return input, corerr.Expected(401, "invalid or expired session")
	}

	if len(endpoint.AllowedRoles) > 0 {
		if role == nil {
			return input, corerr.Expected(500, "no role backend configured")
		}
		userRole, ok, err := role.Get(ctx, roleConn, userID)
		if err != nil {
			return input, corerr.Wrap(500, "role lookup failed", err)
		}
		if !ok || !roleAllowed(userRole, endpoint.AllowedRoles) {
			return input, corerr.Expected(401, "role not permitted for this endpoint")
		}
	}

	if endpoint.InjectUserID {
		if input.Params == nil {
			input.Params = make(map[string]domain.ExecuteParamValue)
		}
		input.Params["user_id"] = domain.InternalParam(formatUserID(userID))
	}

	return input, nil
}

func roleAllowed(role string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, role) {
			return true
		}
	}
	return false
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}
