package pipeline

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

// extractParams is C10 layer 3: path captures seed the param set, then
// query-string and JSON-body values are layered on per spec.md §4.10.
// capture_all_params widens extraction to every name present in the
// request; otherwise only names the endpoint declares are collected,
// and declared-but-absent names are kept as an explicit Client(None)
// rather than omitted, so downstream substitution can tell "missing"
// from "never asked for".
func extractParams(r *http.Request, endpoint domain.Endpoint, pathParams map[string]string) (domain.ExecuteInput, error) {
	params := make(map[string]domain.ExecuteParamValue, len(pathParams))
	for name, value := range pathParams {
		v := value
		params[name] = domain.ClientParam(&v)
	}

	query := r.URL.Query()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return domain.ExecuteInput{}, corerr.Expected(400, "could not read request body")
	}

	var bodyFields map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &bodyFields); err != nil {
			return domain.ExecuteInput{}, corerr.Expected(400, "malformed JSON body")
		}
	} else if len(endpoint.BodyParams) > 0 {
		return domain.ExecuteInput{}, corerr.Expected(400, "this endpoint requires a request body")
	}

	if endpoint.CaptureAllParams {
		for name, values := range query {
			if len(values) == 0 {
				continue
			}
			v := values[0]
			params[name] = domain.ClientParam(&v)
		}
		for name, value := range bodyFields {
			s := stringify(value)
			params[name] = domain.ClientParam(&s)
		}
		return domain.ExecuteInput{Params: params, Body: body}, nil
	}

	for _, name := range endpoint.QueryParams {
		if values, ok := query[name]; ok && len(values) > 0 {
			v := values[0]
			params[name] = domain.ClientParam(&v)
		} else if _, already := params[name]; !already {
			params[name] = domain.ClientParam(nil)
		}
	}

	for _, name := range endpoint.BodyParams {
		if value, ok := bodyFields[name]; ok {
			s := stringify(value)
			params[name] = domain.ClientParam(&s)
		} else if _, already := params[name]; !already {
			params[name] = domain.ClientParam(nil)
		}
	}

	return domain.ExecuteInput{Params: params, Body: body}, nil
}

// stringify renders a decoded JSON value as the text a SQL placeholder
// binds, since domain.ExecuteParamValue only carries strings.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
