package pipeline

import (
	"context"
	"fmt"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
	"github.com/waveless-run/waveless/internal/provider"
)

// runLogin is C10 layer 4, spec.md §4.11: pick the authentication
// backend (the sole one, or the one named by AuthenticationType when
// more than one is configured), check the flattened client params
// against it, and on success mint a session token and return it as
// both a Set-Cookie header and a JSON body.
func runLogin(ctx context.Context, auth *provider.AuthMethods, session domain.SessionBackend, authConn, sessionConn domain.Connection, authHeader string, input domain.ExecuteInput) (domain.ExecuteOutput, error) {
	method, err := selectAuthMethod(auth, authHeader)
	if err != nil {
		return domain.ExecuteOutput{}, err
	}
	if session == nil {
		return domain.ExecuteOutput{}, corerr.Expected(500, "no session backend configured")
	}

	entries := flattenClientParams(input.Params)

	userID, ok, err := method.Check(ctx, authConn, entries)
	if err != nil {
		return domain.ExecuteOutput{}, corerr.Wrap(500, "authentication check failed", err)
	}
	if !ok {
		return domain.ExecuteOutput{}, corerr.Expected(403, "Login failed, invalid credentials.")
	}

	token, err := session.New(ctx, sessionConn, userID)
	if err != nil {
		return domain.ExecuteOutput{}, corerr.Wrap(500, "could not create session", err)
	}

	cookie := fmt.Sprintf("Authorization=%s; SameSite=Lax; Max-Age=%d", token, session.MaxAge())
	return domain.JSONOutputWithHeaders(
		map[string]string{"Set-Cookie": cookie},
		map[string]string{"token": token},
	), nil
}

func selectAuthMethod(auth *provider.AuthMethods, authHeader string) (domain.AuthenticationMethod, error) {
	if method, ok := auth.Single(); ok {
		return method, nil
	}
	if authHeader == "" {
		return nil, corerr.Expected(500, "more than one authentication method is configured; the AuthenticationType header is required")
	}
	method, ok := auth.Get(authHeader)
	if !ok {
		return nil, corerr.Expectedf(500, "unknown authentication method %q", authHeader)
	}
	return method, nil
}

func flattenClientParams(params map[string]domain.ExecuteParamValue) map[string]string {
	entries := make(map[string]string, len(params))
	for name, value := range params {
		if client, ok := value.Client(); ok && client != nil {
			entries[name] = *client
		}
	}
	return entries
}
