package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FABRICREST_RESTFULSERVER_PORT.
const EnvPrefix = "FABRICREST"

const (
	defaultPort            = "4000"
	defaultTokenTTL        = 10 * time.Hour
	defaultShutdownTimeout = 10 * time.Second
	defaultAdminUser       = "Admin"
)

// Load reads the server configuration file, applies environment overrides
// and defaults, and validates the result.
func Load(path string) (*ServerConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("restfulserver.port", defaultPort)
	v.SetDefault("restfulserver.jwtSecret", "")
	v.SetDefault("restfulserver.tokenTTL", defaultTokenTTL)
	v.SetDefault("restfulserver.shutdownTimeout", defaultShutdownTimeout)
	v.SetDefault("restfulserver.allowedOrigins", []string{"*"})
	v.SetDefault("dispatch.tablePath", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	cfg := new(ServerConfig)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Org returns the settings for orgName, matched case-insensitively.
func (c *ServerConfig) Org(orgName string) (Org, bool) {
	org, ok := c.Orgs[strings.ToLower(orgName)]
	return org, ok
}

func (c *ServerConfig) normalize() error {
	if c.RestfulServer.JWTSecret == "" {
		return errors.New("restfulserver.jwtSecret must be set")
	}
	if len(c.Orgs) == 0 {
		return errors.New("at least one org must be configured")
	}

	orgs := make(map[string]Org, len(c.Orgs))
	for name, org := range c.Orgs {
		if org.ConfigPath == "" {
			return errors.Errorf("org %s: configPath must be set", name)
		}
		if org.MSPID == "" {
			return errors.Errorf("org %s: mspID must be set", name)
		}
		if org.WalletPath == "" {
			org.WalletPath = "wallet/" + strings.ToLower(name)
		}
		if org.AdminUser == "" {
			org.AdminUser = defaultAdminUser
		}
		orgs[strings.ToLower(name)] = org
	}
	c.Orgs = orgs

	if c.RestfulServer.TokenTTL <= 0 {
		c.RestfulServer.TokenTTL = defaultTokenTTL
	}
	return nil
}
