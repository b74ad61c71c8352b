package authz

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgchart/pkg/configuration"
)

// Config captures all inputs necessary to initialize the Casbin enforcer.
type Config struct {
	ModelPath    string
	PolicyPath   string
	FlagPath     string
	FlagMode     Mode
	Logger       *logrus.Logger
	FlagProvider FlagProvider
	Memberships  MembershipSource
}

func (c Config) validate() error {
	if c.ModelPath == "" {
		return configError("missing model path")
	}
	if c.PolicyPath == "" {
		return configError("missing policy path")
	}
	return nil
}

func (c Config) normalized() Config {
	c.ModelPath = filepath.Clean(c.ModelPath)
	c.PolicyPath = filepath.Clean(c.PolicyPath)
	if c.FlagPath != "" {
		c.FlagPath = filepath.Clean(c.FlagPath)
	}
	c.FlagMode = sanitizeMode(c.FlagMode)
	return c
}

// ConfigFrom builds a Config from the process configuration.
func ConfigFrom(cfg *configuration.Configuration, memberships MembershipSource) Config {
	return Config{
		ModelPath:   cfg.Authz.ModelPath,
		PolicyPath:  cfg.Authz.PolicyPath,
		FlagPath:    cfg.Authz.FlagPath,
		FlagMode:    Mode(cfg.Authz.Mode),
		Logger:      cfg.Logger(),
		Memberships: memberships,
	}
}
