package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"escrowboard/internal/contracts"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Dashboard variants. Each one targets its own deployed contract.
const (
	VariantTabs    = "tabs"
	VariantStacked = "stacked"
)

var ErrUnknownVariant = errors.New("unknown escrow variant")

// DeploymentConfig represents deployments.json.
type DeploymentConfig struct {
	ChainID   int64  `json:"chainId"`
	Deployer  string `json:"deployer"`
	Contracts struct {
		EscrowTabs    string `json:"escrowTabs"`
		EscrowStacked string `json:"escrowStacked"`
	} `json:"contracts"`
}

// EnvConfig is decoded from the process environment.
type EnvConfig struct {
	Variant         string `envconfig:"ESCROW_VARIANT" default:"tabs"`
	DeploymentsPath string `envconfig:"DEPLOYMENTS_PATH" default:"deployments.json"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	RPCURL             string `envconfig:"CHAIN_RPC_URL"`
	PrivateKey         string `envconfig:"CHAIN_PRIVATE_KEY"`
	KeystoreDir        string `envconfig:"CHAIN_KEYSTORE_DIR"`
	KeystoreAccount    string `envconfig:"CHAIN_KEYSTORE_ACCOUNT"`
	KeystorePassphrase string `envconfig:"CHAIN_KEYSTORE_PASSPHRASE"`

	HTTPPort             int    `envconfig:"API_HTTP_PORT" default:"3000"`
	HMACSecret           string `envconfig:"API_HMAC_SECRET"`
	HMACClockSkewSeconds int    `envconfig:"HMAC_CLOCK_SKEW_SECONDS" default:"60"`
	IdempotencyWindowSec int    `envconfig:"IDEMPOTENCY_WINDOW_SECONDS" default:"86400"`
	IdempotencyStorePath string `envconfig:"IDEMPOTENCY_STORE_PATH"`
	PostgresDSN          string `envconfig:"POSTGRES_DSN"`
	RedisAddr            string `envconfig:"REDIS_ADDR"`

	NotificationSeconds int `envconfig:"NOTIFICATION_SECONDS" default:"6"`
}

// AppConfig ties together deployment info and derived values.
type AppConfig struct {
	Variant    string
	Deployment DeploymentConfig
	Service    ServiceConfig
	Chain      ChainConfig
	Stores     StoreConfig

	NotificationTTL time.Duration
	LogLevel        logrus.Level
}

type ServiceConfig struct {
	HTTPPort             int
	HMACSecret           string
	HMACClockSkew        time.Duration
	IdempotencyWindow    time.Duration
	IdempotencyStorePath string
}

type ChainConfig struct {
	RPCURL             string
	PrivateKey         string
	KeystoreDir        string
	KeystoreAccount    string
	KeystorePassphrase string
}

type StoreConfig struct {
	PostgresDSN string
	RedisAddr   string
}

// Load aggregates configuration from the environment and deployments.json.
func Load() (*AppConfig, error) {
	var env EnvConfig
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return FromEnv(env)
}

// FromEnv validates decoded environment values and resolves the deployment.
func FromEnv(env EnvConfig) (*AppConfig, error) {
	if env.Variant != VariantTabs && env.Variant != VariantStacked {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, env.Variant)
	}
	level, err := logrus.ParseLevel(env.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if env.NotificationSeconds <= 0 {
		return nil, fmt.Errorf("notification seconds must be positive, got %d", env.NotificationSeconds)
	}

	deployCfg, err := loadDeployments(env.DeploymentsPath)
	if err != nil {
		return nil, fmt.Errorf("load deployments: %w", err)
	}

	return &AppConfig{
		Variant:    env.Variant,
		Deployment: *deployCfg,
		Service: ServiceConfig{
			HTTPPort:             env.HTTPPort,
			HMACSecret:           env.HMACSecret,
			HMACClockSkew:        time.Duration(env.HMACClockSkewSeconds) * time.Second,
			IdempotencyWindow:    time.Duration(env.IdempotencyWindowSec) * time.Second,
			IdempotencyStorePath: env.IdempotencyStorePath,
		},
		Chain: ChainConfig{
			RPCURL:             env.RPCURL,
			PrivateKey:         env.PrivateKey,
			KeystoreDir:        env.KeystoreDir,
			KeystoreAccount:    env.KeystoreAccount,
			KeystorePassphrase: env.KeystorePassphrase,
		},
		Stores: StoreConfig{
			PostgresDSN: env.PostgresDSN,
			RedisAddr:   env.RedisAddr,
		},
		NotificationTTL: time.Duration(env.NotificationSeconds) * time.Second,
		LogLevel:        level,
	}, nil
}

// ContractAddress returns the escrow contract for the configured variant.
func (c *AppConfig) ContractAddress() (common.Address, error) {
	raw := c.Deployment.Contracts.EscrowTabs
	if c.Variant == VariantStacked {
		raw = c.Deployment.Contracts.EscrowStacked
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s contract address %q is not a hex address", c.Variant, raw)
	}
	return common.HexToAddress(raw), nil
}

// DevMode reports whether no chain endpoint is configured.
func (c *AppConfig) DevMode() bool {
	return c.Chain.RPCURL == ""
}

func builtinDeployments() *DeploymentConfig {
	var cfg DeploymentConfig
	cfg.Contracts.EscrowTabs = contracts.EscrowTabsAddress
	cfg.Contracts.EscrowStacked = contracts.EscrowStackedAddress
	return &cfg
}

func loadDeployments(path string) (*DeploymentConfig, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return builtinDeployments(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg := builtinDeployments()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
