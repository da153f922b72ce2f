package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_MANAGER_NAME is the manager identity of the in-process host.
	ManagerName string `envconfig:"E2E_MANAGER_NAME" default:"boss (Manager)"`
	// E2E_FORBIDDEN_WORDS seeds chat moderation for the scenario.
	ForbiddenWords []string `envconfig:"E2E_FORBIDDEN_WORDS" default:"dang"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
