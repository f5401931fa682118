package pipeline

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/delivery/http/router"
	"github.com/waveless-run/waveless/internal/domain"
	"github.com/waveless-run/waveless/internal/service"
	"github.com/waveless-run/waveless/internal/usecase"
)

// Handler is the whole C10 chain mounted as a single http.Handler,
// wrapped by internal/middleware.Outer for the fixed outer-layer
// composition order.
type Handler struct {
	rc     *usecase.RuntimeContext
	logger *zap.Logger
}

func New(rc *usecase.RuntimeContext, logger *zap.Logger) *Handler {
	return &Handler{rc: rc, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cacheTime := h.rc.Build.ExecutorSettings.HTTPCacheTime

	method := domain.ParseHTTPMethod(r.Method)
	match, ok := h.rc.Router.Lookup(method, r.URL.Path)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no endpoint matches this route")
		return
	}
	endpoint := match.Endpoint

	input, err := extractParams(r, endpoint, match.Params)
	if err != nil {
		writeEnvelope(w, cacheTime, domain.ExecuteOutput{}, err)
		return
	}

	if endpoint.ID == router.LoginEndpointID {
		authConn, sessionConn, err := h.authConns()
		if err != nil {
			writeEnvelope(w, cacheTime, domain.ExecuteOutput{}, err)
			return
		}
		session, _ := h.rc.Session.Get()
		output, err := runLogin(ctx, h.rc.Auth, session, authConn, sessionConn, r.Header.Get("AuthenticationType"), input)
		writeEnvelope(w, cacheTime, output, err)
		return
	}

	if endpoint.RequireAuth {
		sessionConn, roleConn, err := h.gateConns()
		if err != nil {
			writeEnvelope(w, cacheTime, domain.ExecuteOutput{}, err)
			return
		}
		session, _ := h.rc.Session.Get()
		role, _ := h.rc.Role.Get()
		input, err = runGate(ctx, r, session, role, sessionConn, roleConn, endpoint, input)
		if err != nil {
			writeEnvelope(w, cacheTime, domain.ExecuteOutput{}, err)
			return
		}
	}

	output, err := h.dispatch(ctx, method, endpoint, input)
	writeEnvelope(w, cacheTime, output, err)
}

// dispatch is C10 layer 6: compile the endpoint's execute config and
// run it against its target database's connection.
func (h *Handler) dispatch(ctx context.Context, method domain.HTTPMethod, endpoint domain.Endpoint, input domain.ExecuteInput) (domain.ExecuteOutput, error) {
	if endpoint.Execute == nil {
		return domain.ExecuteOutput{}, corerr.Expected(500, "endpoint has no execute configuration")
	}

	executor, err := service.Compile(endpoint.Execute)
	if err != nil {
		return domain.ExecuteOutput{}, corerr.Wrap(500, "could not compile executor", err)
	}

	conn, ok := h.rc.Conn(endpoint.TargetDatabase)
	if !ok {
		return domain.ExecuteOutput{}, corerr.Expected(500, "no open connection pool for this endpoint's database")
	}

	return executor.Execute(ctx, method, conn, input)
}

func (h *Handler) authConns() (domain.Connection, domain.Connection, error) {
	auth := h.rc.Build.General.Auth
	if auth == nil {
		return nil, nil, corerr.Expected(500, "authentication is not configured")
	}
	authConn, ok := h.rc.Conn(auth.Method.DatabaseID())
	if !ok {
		return nil, nil, corerr.Expected(500, "no connection pool for the authentication method's database")
	}
	sessionConn, ok := h.rc.Conn(auth.Session.DatabaseID())
	if !ok {
		return nil, nil, corerr.Expected(500, "no connection pool for the session backend's database")
	}
	return authConn, sessionConn, nil
}

func (h *Handler) gateConns() (domain.Connection, domain.Connection, error) {
	auth := h.rc.Build.General.Auth
	if auth == nil {
		return nil, nil, corerr.Expected(500, "authentication is not configured")
	}
	sessionConn, ok := h.rc.Conn(auth.Session.DatabaseID())
	if !ok {
		return nil, nil, corerr.Expected(500, "no connection pool for the session backend's database")
	}
	if auth.Role == nil {
		return sessionConn, nil, nil
	}
	roleConn, ok := h.rc.Conn(auth.Role.DatabaseID())
	if !ok {
		return nil, nil, corerr.Expected(500, "no connection pool for the role backend's database")
	}
	return sessionConn, roleConn, nil
}
