package config

import "time"

// Org holds the per-organization SDK settings.
type Org struct {
	ConfigPath   string   `json:"configPath,omitempty" yaml:"configPath,omitempty" mapstructure:"configPath"`
	MSPID        string   `json:"mspID,omitempty" yaml:"mspID,omitempty" mapstructure:"mspID"`
	WalletPath   string   `json:"walletPath,omitempty" yaml:"walletPath,omitempty" mapstructure:"walletPath"`
	KeystorePath string   `json:"keystorePath,omitempty" yaml:"keystorePath,omitempty" mapstructure:"keystorePath"`
	Affiliation  string   `json:"affiliation,omitempty" yaml:"affiliation,omitempty" mapstructure:"affiliation"`
	AdminUser    string   `json:"adminUser,omitempty" yaml:"adminUser,omitempty" mapstructure:"adminUser"`
	TargetPeers  []string `json:"targetPeers,omitempty" yaml:"targetPeers,omitempty" mapstructure:"targetPeers"`
}

// RestfulServer for server
type RestfulServer struct {
	Port            string        `json:"port,omitempty" yaml:"port,omitempty" mapstructure:"port"`
	JWTSecret       string        `json:"-" yaml:"jwtSecret,omitempty" mapstructure:"jwtSecret"`
	TokenTTL        time.Duration `json:"tokenTTL,omitempty" yaml:"tokenTTL,omitempty" mapstructure:"tokenTTL"`
	AllowedOrigins  []string      `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty" mapstructure:"allowedOrigins"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty" mapstructure:"shutdownTimeout"`
}

// Dispatch points at an optional function shape file.
type Dispatch struct {
	TablePath string `json:"tablePath,omitempty" yaml:"tablePath,omitempty" mapstructure:"tablePath"`
}

// Log settings.
type Log struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" mapstructure:"level"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" mapstructure:"format"`
}

// ServerConfig for server
type ServerConfig struct {
	RestfulServer RestfulServer  `json:"restfulserver,omitempty" yaml:"restfulserver,omitempty" mapstructure:"restfulserver"`
	Orgs          map[string]Org `json:"orgs,omitempty" yaml:"orgs,omitempty" mapstructure:"orgs"`
	Dispatch      Dispatch       `json:"dispatch,omitempty" yaml:"dispatch,omitempty" mapstructure:"dispatch"`
	Log           Log            `json:"log,omitempty" yaml:"log,omitempty" mapstructure:"log"`
}
