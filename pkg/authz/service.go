package authz

import (
	"context"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MembershipSource resolves the stored role of a user within an organization.
type MembershipSource interface {
	RoleOf(ctx context.Context, orgID, userID uuid.UUID) (Role, bool, error)
}

// Gate answers "does this actor hold at least this role in this organization".
type Gate struct {
	cfg          Config
	enforcer     *casbin.Enforcer
	logger       *logrus.Entry
	flagProvider FlagProvider
	memberships  MembershipSource
	mu           sync.RWMutex
}

// NewGate constructs a Gate with the provided config.
func NewGate(cfg Config) (*Gate, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "authz")
	} else {
		logger = logrus.WithField("component", "authz")
	}

	enf, err := casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	if err := enf.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz: failed to load policies: %w", err)
	}
	// Grants made at runtime stay in memory; the policy file is read-only.
	enf.EnableAutoSave(false)

	provider := cfg.FlagProvider
	if provider == nil {
		if cfg.FlagPath != "" {
			provider = NewFileFlagProvider(cfg.FlagPath, cfg.FlagMode)
		} else {
			provider = StaticFlagProvider(cfg.FlagMode)
		}
	}

	return &Gate{
		cfg:          cfg,
		enforcer:     enf,
		logger:       logger,
		flagProvider: provider,
		memberships:  cfg.Memberships,
	}, nil
}

// Mode returns the current enforcement mode.
func (g *Gate) Mode() Mode {
	return sanitizeMode(g.flagProvider.Mode())
}

// Grant records an in-memory membership of userID in orgID.
func (g *Gate) Grant(orgID, userID uuid.UUID, role Role) error {
	if _, ok := roleRank[role]; !ok {
		return configError("unknown role %q", role)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.enforcer.AddGroupingPolicy(SubjectForUser(userID), SubjectForRole(role), DomainForOrg(orgID)); err != nil {
		return fmt.Errorf("authz: grant failed: %w", err)
	}
	return nil
}

// RequireOrgPermission returns an error matching ErrPermissionDenied if the
// actor does not hold at least min in orgID.
func (g *Gate) RequireOrgPermission(ctx context.Context, orgID, actorID uuid.UUID, min Role) error {
	mode := g.Mode()
	if mode == ModeDisabled {
		return nil
	}
	allowed, err := g.Check(ctx, orgID, actorID, min)
	if err != nil {
		return err
	}
	recordDecision(mode, allowed)
	if allowed {
		return nil
	}

	req := g.request(SubjectForUser(actorID), orgID, min)
	fields := logrus.Fields{
		"subject": req.Subject,
		"domain":  req.Domain,
		"object":  req.Object,
		"action":  req.Action,
		"mode":    mode,
	}
	if mode == ModeShadow {
		g.logger.WithContext(ctx).WithFields(fields).Warn("authz shadow deny")
		return nil
	}
	g.logger.WithContext(ctx).WithFields(fields).Warn("authz denied request")
	return forbiddenError(req, min)
}

// Check evaluates a request without returning an authorization error.
func (g *Gate) Check(ctx context.Context, orgID, actorID uuid.UUID, min Role) (bool, error) {
	if actorID == uuid.Nil {
		return false, nil
	}
	subjects := []string{SubjectForUser(actorID)}
	if g.memberships != nil {
		role, ok, err := g.memberships.RoleOf(ctx, orgID, actorID)
		if err != nil {
			return false, fmt.Errorf("authz: membership lookup failed: %w", err)
		}
		if ok {
			subjects = append(subjects, SubjectForRole(role))
		}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, sub := range subjects {
		req := g.request(sub, orgID, min)
		res, err := g.enforcer.Enforce(req.Subject, req.Domain, req.Object, req.Action)
		if err != nil {
			return false, fmt.Errorf("authz: enforce failed: %w", err)
		}
		if res {
			return true, nil
		}
	}
	return false, nil
}

// ReloadPolicy reloads policy data from disk, dropping runtime grants.
func (g *Gate) ReloadPolicy(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy failed: %w", err)
	}
	g.logger.WithContext(ctx).Info("authz policy reloaded")
	return nil
}

func (g *Gate) request(subject string, orgID uuid.UUID, min Role) Request {
	return Request{
		Subject: subject,
		Domain:  DomainForOrg(orgID),
		Object:  ObjectOrgChart,
		Action:  min.Action(),
	}
}
