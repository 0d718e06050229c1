package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v2"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
)

// Action names a role-gated operation.
type Action string

const (
	ActionDonate   Action = "donate"
	ActionDispatch Action = "dispatch"
	ActionAudit    Action = "audit"
)

// Policy maps actions to the roles allowed to perform them and lists the
// roles that need the admin code at registration.
type Policy struct {
	Actions    map[Action][]domain.UserRole `yaml:"actions"`
	Privileged []domain.UserRole            `yaml:"privileged"`
}

func DefaultPolicy() Policy {
	return Policy{
		Actions: map[Action][]domain.UserRole{
			ActionDonate:   {domain.UserRoleNGO, domain.UserRoleAdmin},
			ActionDispatch: {domain.UserRoleNGO, domain.UserRoleAdmin},
			ActionAudit:    {domain.UserRoleAdmin, domain.UserRoleAuditor, domain.UserRoleGovt, domain.UserRoleNGO},
		},
		Privileged: []domain.UserRole{domain.UserRoleAdmin, domain.UserRoleGovt},
	}
}

// Allows reports whether role may perform action. Unknown actions are denied.
func (p Policy) Allows(role domain.UserRole, action Action) bool {
	return slices.Contains(p.Actions[action], role)
}

func (p Policy) IsPrivileged(role domain.UserRole) bool {
	return slices.Contains(p.Privileged, role)
}

// ParsePolicy reads a YAML policy. Sections left out keep their defaults.
func ParsePolicy(data []byte) (Policy, error) {
	var file Policy
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return Policy{}, fmt.Errorf("parse role policy: %w", err)
	}
	p := DefaultPolicy()
	for action, roles := range file.Actions {
		if err := checkRoles(roles); err != nil {
			return Policy{}, fmt.Errorf("action %q: %w", action, err)
		}
		p.Actions[action] = roles
	}
	if file.Privileged != nil {
		if err := checkRoles(file.Privileged); err != nil {
			return Policy{}, fmt.Errorf("privileged: %w", err)
		}
		p.Privileged = file.Privileged
	}
	return p, nil
}

func checkRoles(roles []domain.UserRole) error {
	for _, r := range roles {
		if _, ok := domain.ParseRole(string(r)); !ok {
			return fmt.Errorf("unknown role %q", r)
		}
	}
	return nil
}

// PolicyStore holds the active policy. When backed by a file it can follow
// changes to that file.
type PolicyStore struct {
	mu      sync.RWMutex
	current Policy
	path    string
	logger  infra.Logger
}

// NewPolicyStore serves a fixed policy.
func NewPolicyStore(p Policy, logger infra.Logger) *PolicyStore {
	return &PolicyStore{current: p, logger: logger}
}

// LoadPolicyFile reads path and returns a store that can Watch it.
func LoadPolicyFile(path string, logger infra.Logger) (*PolicyStore, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	s := &PolicyStore{path: abs, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PolicyStore) Current() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *PolicyStore) Allows(role domain.UserRole, action Action) bool {
	return s.Current().Allows(role, action)
}

func (s *PolicyStore) IsPrivileged(role domain.UserRole) bool {
	return s.Current().IsPrivileged(role)
}

// Reload re-reads the policy file. A bad file keeps the previous policy.
func (s *PolicyStore) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read role policy: %w", err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	return nil
}

// Watch reloads the policy whenever its file changes until ctx is done. The
// directory is watched so editors that replace the file are followed.
func (s *PolicyStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path || !policyChanged(event) {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Error().Err(err).Str("path", s.path).Msg("role policy reload failed, keeping previous")
					continue
				}
				s.logger.Info().Str("path", s.path).Msg("role policy reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error().Err(err).Msg("role policy watcher")
			}
		}
	}()
	return nil
}

func policyChanged(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Rename == fsnotify.Rename
}
