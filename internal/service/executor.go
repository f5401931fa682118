// Package service implements the C9 executor backends: the concrete
// types an endpoint's domain.ExecuteConfig compiles into at request
// time, plus the C8 SQL authentication/session/role backends.
package service

import (
	"context"
	"fmt"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

// Compile turns a declarative domain.ExecuteConfig into the
// domain.Executor that actually runs it. The login endpoint has a nil
// ExecuteConfig and is handled entirely by the pipeline layer, never
// reaching Compile.
func Compile(cfg domain.ExecuteConfig) (domain.Executor, error) {
	switch c := cfg.(type) {
	case domain.SQLExecute:
		return &SQLExecutor{Query: c.Query}, nil
	case domain.ExternalModuleExecute:
		return externalModuleExecutor{name: c.Name}, nil
	default:
		return nil, fmt.Errorf("service: unknown execute config %T", cfg)
	}
}

// externalModuleExecutor is the reserved extension point: it compiles
// but always fails at dispatch time, since no out-of-process module
// loader exists in this runtime.
type externalModuleExecutor struct{ name string }

func (e externalModuleExecutor) Execute(_ context.Context, _ domain.HTTPMethod, _ domain.Connection, _ domain.ExecuteInput) (domain.ExecuteOutput, error) {
	return domain.ExecuteOutput{}, corerr.Expectedf(501, "external_module executor %q is not implemented by this runtime", e.name)
}
