// Package provider implements the pluggable-backend registries behind
// spec.md §4.8 and §4.11: named authentication, session and role
// backends that the login-capture layer can pick between, adapted from
// the teacher's single-purpose identity-provider registry into three
// small, generically-shaped registries.
package provider

import (
	"fmt"
	"sync"

	"github.com/waveless-run/waveless/internal/domain"
)

// AuthMethods holds every configured domain.AuthenticationMethod, keyed
// by name.
type AuthMethods struct {
	mu    sync.RWMutex
	byKey map[string]domain.AuthenticationMethod
}

func NewAuthMethods() *AuthMethods {
	return &AuthMethods{byKey: make(map[string]domain.AuthenticationMethod)}
}

func (r *AuthMethods) Register(method domain.AuthenticationMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := method.Name()
	if name == "" {
		return fmt.Errorf("authentication method name cannot be empty")
	}
	if _, exists := r.byKey[name]; exists {
		return fmt.Errorf("authentication method %q already registered", name)
	}
	r.byKey[name] = method
	return nil
}

func (r *AuthMethods) Get(name string) (domain.AuthenticationMethod, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byKey[name]
	return m, ok
}

// Single returns the sole registered method, or false if zero or more
// than one is registered — used by login capture (spec.md §4.11) when
// no AuthenticationType header disambiguates between backends.
func (r *AuthMethods) Single() (domain.AuthenticationMethod, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.byKey) != 1 {
		return nil, false
	}
	for _, m := range r.byKey {
		return m, true
	}
	return nil, false
}

func (r *AuthMethods) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// SessionBackends holds the configured domain.SessionBackend. Unlike
// authentication methods, spec.md never disambiguates between multiple
// session backends at request time, so the project model carries at
// most one.
type SessionBackends struct {
	mu      sync.RWMutex
	current domain.SessionBackend
}

func NewSessionBackends() *SessionBackends {
	return &SessionBackends{}
}

func (r *SessionBackends) Set(backend domain.SessionBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = backend
}

func (r *SessionBackends) Get() (domain.SessionBackend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.current != nil
}

// RoleBackends mirrors SessionBackends for the role contract.
type RoleBackends struct {
	mu      sync.RWMutex
	current domain.RoleBackend
}

func NewRoleBackends() *RoleBackends {
	return &RoleBackends{}
}

func (r *RoleBackends) Set(backend domain.RoleBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = backend
}

func (r *RoleBackends) Get() (domain.RoleBackend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.current != nil
}
