package service

import (
	"context"
	"regexp"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

var (
	internalParamPattern = regexp.MustCompile(`\|([A-Za-z0-9_]+)\|`)
	clientParamPattern   = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)
)

// SQLExecutor runs a single parameterised query template against
// whatever domain.Connection the endpoint's TargetDatabase resolves
// to. Query holds the template exactly as authored: |name| markers for
// server-controlled internal values, {name} markers for client-bound
// prepared-statement parameters, per spec.md §4.9.
type SQLExecutor struct {
	Query string
}

func (x *SQLExecutor) Execute(ctx context.Context, method domain.HTTPMethod, conn domain.Connection, input domain.ExecuteInput) (domain.ExecuteOutput, error) {
	query, err := substituteInternalParams(x.Query, input.Params)
	if err != nil {
		return domain.ExecuteOutput{}, err
	}

	query, args, err := substituteClientParams(query, input.Params, method)
	if err != nil {
		return domain.ExecuteOutput{}, err
	}

	rows, err := conn.Query(ctx, query, args)
	if err != nil {
		return domain.ExecuteOutput{}, corerr.Wrap(500, "query execution failed", err)
	}

	return domain.JSONOutput(rows), nil
}

// substituteInternalParams inlines every |name| marker as literal text.
// Internal values are server-controlled and never reach this query
// template from request input, so inlining them textually (rather than
// binding them) carries no injection risk — see the hazard note on
// domain.ExecuteParamValue.
func substituteInternalParams(query string, params map[string]domain.ExecuteParamValue) (string, error) {
	var firstErr error
	result := internalParamPattern.ReplaceAllStringFunc(query, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := match[1 : len(match)-1]
		val, ok := params[name]
		if !ok || !val.IsInternal() {
			firstErr = corerr.Expectedf(500, "the endpoint requires internal parameter '%s', but it wasn't provided", name)
			return match
		}
		return val.Internal()
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// substituteClientParams rewrites every {name} marker to a positional
// "?" placeholder and collects the bound values in left-to-right order
// of occurrence (duplicates bind once per occurrence). A PUT whose body
// omitted an optional column is handled by structurally stripping that
// column's assignment from the query rather than the source's regex
// over the already-substituted SQL text — see spec.md §9's redesign
// note on this path. Any other method missing a referenced param fails
// the request outright.
func substituteClientParams(query string, params map[string]domain.ExecuteParamValue, method domain.HTTPMethod) (string, []any, error) {
	names := clientParamPattern.FindAllStringSubmatch(query, -1)
	substituted := clientParamPattern.ReplaceAllString(query, "?")

	var args []any
	for _, m := range names {
		name := m[1]
		val := params[name]
		client, isClientArm := val.Client()

		if isClientArm && client != nil {
			args = append(args, *client)
			continue
		}

		if method == domain.MethodPut {
			substituted = stripMissingAssignment(substituted, name)
			continue
		}

		return "", nil, corerr.Expectedf(500, "the endpoint requires '%s', but it wasn't provided in the request", name)
	}

	return substituted, args, nil
}

// stripMissingAssignment removes one "name = ?" assignment (with its
// leading or trailing comma) from an already ?-substituted SET list,
// so a PUT that omits an optional column doesn't bind a null over it.
func stripMissingAssignment(query, name string) string {
	pattern := regexp.MustCompile(`,\s*` + regexp.QuoteMeta(name) + `\s*=\s*\?|` + regexp.QuoteMeta(name) + `\s*=\s*\?\s*,?`)
	return pattern.ReplaceAllString(query, "")
}
