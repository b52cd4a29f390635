package service

import (
	"fmt"
	"os"
	"time"

	"github.com/revnet-network/revnet-sdk/common/utils"
	"github.com/revnet-network/revnet-sdk/sdk"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultRequestTimeout = 30 * time.Second
)

type ChainConfig struct {
	ChainId uint64 `yaml:"chain_id"`

	// RpcUrl is used to dry-run sucker calls. Environment variables are expanded
	// so API keys can stay out of the file, e.g. "https://base.example/v2/$RPC_KEY".
	RpcUrl string `yaml:"rpc_url"`

	// Upper bound of the fee search, e.g. "0.05ether" or a plain wei amount.
	// Defaults to common.DefaultFeeCap.
	FeeCap string `yaml:"fee_cap"`

	// Dry-run budget per estimate. Defaults to common.DefaultMaxIterations.
	MaxIterations int `yaml:"max_iterations"`

	// Headroom added to the minimal fee for the recommended value, in basis points.
	FeeBufferBps uint64 `yaml:"fee_buffer_bps"`
}

func (c ChainConfig) GetRpcUrl() string {
	return os.ExpandEnv(c.RpcUrl)
}

func (c ChainConfig) estimatorConfig(cacheTTL time.Duration) (sdk.EstimatorConfig, error) {
	cfg := sdk.EstimatorConfig{
		ChainId:       c.ChainId,
		MaxIterations: c.MaxIterations,
		FeeBufferBps:  c.FeeBufferBps,
		CacheTTL:      cacheTTL,
	}
	if c.FeeCap != "" {
		feeCap, err := utils.ParseWei(c.FeeCap)
		if err != nil {
			return cfg, fmt.Errorf("chain %d fee_cap: %w", c.ChainId, err)
		}
		cfg.FeeCap = feeCap
	}
	return cfg, nil
}

type ServiceConfig struct {
	// Interface to listen on. Empty listens on all interfaces.
	Bind string `yaml:"bind"`

	// HTTP port. Defaults to 8080.
	Port uint `yaml:"port"`

	// Origins allowed to call the service from a browser. Empty allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Persistence type of the fee cache, currently supporting "syncmap", "file"
	// and "badgerdb". Default to "syncmap".
	PersistenceType string `yaml:"persistence_type"`

	// Persistence options as JSON string. See store.Options for details.
	PersistenceOptions string `yaml:"persistence_options"`

	// How long converged estimates are served from cache, e.g. "2m".
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Deadline for a single estimate including all of its dry-run calls.
	// Defaults to 30s.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Chains []ChainConfig `yaml:"chains"`
}

func (c ServiceConfig) GetPersistenceOptions() string {
	return os.ExpandEnv(c.PersistenceOptions)
}

func (c ServiceConfig) GetPort() uint {
	if c.Port == 0 {
		return defaultPort
	}
	return c.Port
}

func (c ServiceConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return c.RequestTimeout
}

func (c ServiceConfig) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("no chains configured")
	}
	seen := make(map[uint64]bool)
	for _, chain := range c.Chains {
		if chain.ChainId == 0 {
			return fmt.Errorf("chain_id is required")
		}
		if seen[chain.ChainId] {
			return fmt.Errorf("duplicate chain %d", chain.ChainId)
		}
		seen[chain.ChainId] = true
		if chain.GetRpcUrl() == "" {
			return fmt.Errorf("chain %d has no rpc_url", chain.ChainId)
		}
	}
	return nil
}

// LoadConfig reads a YAML ServiceConfig from path.
func LoadConfig(path string) (ServiceConfig, error) {
	var cfg ServiceConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("os.ReadFile err: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("yaml.Unmarshal err: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
