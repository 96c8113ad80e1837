// Package config 读取服务配置：YAML 文件 + 环境变量覆盖。
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config 根配置。
// 来源优先级：
//  1. 显式路径（-config）；
//  2. 环境变量 CONFIG_PATH；
//  3. 工作目录下的 ./local.yaml；
//  4. 仅环境变量。
type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Session   SessionConfig   `yaml:"session"`
	Voter     VoterConfig     `yaml:"voter"`
	CORS      CORSConfig      `yaml:"cors"`
	Limits    LimitsConfig    `yaml:"limits"`
	Votes     VotesConfig     `yaml:"votes"`
	Cache     CacheConfig     `yaml:"cache"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
}

type HTTPConfig struct {
	Host           string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port           string        `yaml:"port" env:"PORT" env-default:"8080"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"5s"`
}

// Addr 返回 host:port。
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

type DBConfig struct {
	Driver       string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DSN          string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"20"`
	AutoMigrate  bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

type SessionConfig struct {
	Name   string `yaml:"name" env:"SESSION_NAME" env-default:"alumnilink_session"`
	Secret string `yaml:"secret" env:"SESSION_SECRET" env-default:"secret_key_change_me"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// LimitsConfig 分页与回复树的上限。
type LimitsConfig struct {
	// page size 为 0 时用 Default，上限为 Max。
	Default int `yaml:"default" env:"PAGE_SIZE_DEFAULT" env-default:"20"`
	Max     int `yaml:"max" env:"PAGE_SIZE_MAX" env-default:"100"`
	// 回复树展开的最大深度（根 = 0）与单棵树的最大节点数。
	MaxDepth int `yaml:"max_depth" env:"TREE_MAX_DEPTH" env-default:"16"`
	MaxNodes int `yaml:"max_nodes" env:"TREE_MAX_NODES" env-default:"2000"`
}

type VotesConfig struct {
	// 唯一约束冲突后整体重试的最大次数（含第一次）。
	MaxAttempts int `yaml:"max_attempts" env:"VOTE_MAX_ATTEMPTS" env-default:"3"`
}

type CacheConfig struct {
	SubjectSize int           `yaml:"subject_size" env:"SUBJECT_CACHE_SIZE" env-default:"500"`
	SubjectTTL  time.Duration `yaml:"subject_ttl" env:"SUBJECT_CACHE_TTL" env-default:"5m"`
}

type ReconcileConfig struct {
	Scheduled bool `yaml:"scheduled" env:"RECONCILE_SCHEDULED" env-default:"true"`
	// 每天几点跑全量校准（本地时间）。
	Hour int `yaml:"hour" env:"RECONCILE_HOUR" env-default:"3"`
}

// VoterConfig 只有部署在会注入身份头的网关后面时才打开 TrustGatewayHeaders。
type VoterConfig struct {
	TrustGatewayHeaders bool `yaml:"trust_gateway_headers" env:"VOTER_TRUST_GATEWAY_HEADERS" env-default:"false"`
}

// AdminConfig 管理接口的共享令牌，为空时管理接口关闭。
type AdminConfig struct {
	Token string `yaml:"token" env:"ADMIN_TOKEN"`
}

type LogConfig struct {
	HashSalt string `yaml:"hash_salt" env:"LOG_HASH_SALT"`
}

// MustLoad 是 Load 的 panic 版本。
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load 按优先级读取配置并校验。
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		// ReadConfig 读完文件后会叠加环境变量。
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return &cfg, nil
	}

	var (
		out *Config
		err error
	)
	switch {
	case path != "":
		out, err = readFile(path)
	case os.Getenv("CONFIG_PATH") != "":
		out, err = readFile(os.Getenv("CONFIG_PATH"))
	default:
		if _, statErr := os.Stat("local.yaml"); statErr == nil {
			out, err = readFile("local.yaml")
		} else {
			if err = cleanenv.ReadEnv(&cfg); err != nil {
				return nil, fmt.Errorf("config not found: provide -config, CONFIG_PATH, local.yaml or env vars: %w", err)
			}
			out = &cfg
		}
	}
	if err != nil {
		return nil, err
	}

	if err := out.validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.DB.DSN == "" {
			c.DB.DSN = "file:alumnilink.db?_foreign_keys=on"
		}
	default:
		return fmt.Errorf("db.driver must be %q or %q", DriverPostgres, DriverSQLite)
	}

	if c.Limits.Default <= 0 {
		return fmt.Errorf("limits.default must be > 0")
	}
	if c.Limits.Max <= 0 {
		return fmt.Errorf("limits.max must be > 0")
	}
	if c.Limits.Default > c.Limits.Max {
		return fmt.Errorf("limits.default must be <= limits.max")
	}
	if c.Limits.MaxDepth <= 0 || c.Limits.MaxDepth > 64 {
		return fmt.Errorf("limits.max_depth must be in [1, 64]")
	}
	if c.Limits.MaxNodes <= 0 {
		return fmt.Errorf("limits.max_nodes must be > 0")
	}
	if c.Votes.MaxAttempts <= 0 {
		return fmt.Errorf("votes.max_attempts must be > 0")
	}
	if c.Cache.SubjectSize <= 0 {
		return fmt.Errorf("cache.subject_size must be > 0")
	}
	if c.Reconcile.Hour < 0 || c.Reconcile.Hour > 23 {
		return fmt.Errorf("reconcile.hour must be in [0, 23]")
	}

	return nil
}
