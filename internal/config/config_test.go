package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

const sampleYAML = `
env: "prod"
http:
  host: "127.0.0.1"
  port: "9090"
  request_timeout: 3s
db:
  driver: "postgres"
  dsn: "host=localhost user=alumni dbname=alumni sslmode=disable"
limits:
  default: 15
  max: 50
  max_depth: 8
  max_nodes: 300
votes:
  max_attempts: 5
cache:
  subject_size: 100
  subject_ttl: 1m
reconcile:
  scheduled: false
  hour: 4
voter:
  trust_gateway_headers: true
`

const sqliteYAML = `
db:
  driver: "sqlite"
`

const badLimitsYAML = `
db:
  driver: "sqlite"
limits:
  default: 200
  max: 100
`

func TestHTTPConfig_Addr(t *testing.T) {
	cfg := HTTPConfig{Host: "0.0.0.0", Port: "8080"}
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoad_WithExplicitPath_OK(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr())
	require.Equal(t, 3*time.Second, cfg.HTTP.RequestTimeout)
	require.Equal(t, DriverPostgres, cfg.DB.Driver)
	require.Equal(t, 15, cfg.Limits.Default)
	require.Equal(t, 50, cfg.Limits.Max)
	require.Equal(t, 8, cfg.Limits.MaxDepth)
	require.Equal(t, 300, cfg.Limits.MaxNodes)
	require.Equal(t, 5, cfg.Votes.MaxAttempts)
	require.Equal(t, time.Minute, cfg.Cache.SubjectTTL)
	require.False(t, cfg.Reconcile.Scheduled)
	require.Equal(t, 4, cfg.Reconcile.Hour)
	require.True(t, cfg.Voter.TrustGatewayHeaders)
}

func TestLoad_Defaults_SQLiteDSN(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sqlite.yaml", sqliteYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, DriverSQLite, cfg.DB.Driver)
	require.NotEmpty(t, cfg.DB.DSN)
	require.Equal(t, 20, cfg.Limits.Default)
	require.Equal(t, 100, cfg.Limits.Max)
	require.Equal(t, 16, cfg.Limits.MaxDepth)
	require.Equal(t, 2000, cfg.Limits.MaxNodes)
	require.Equal(t, 3, cfg.Votes.MaxAttempts)
	require.False(t, cfg.Voter.TrustGatewayHeaders)
}

func TestLoad_WithCONFIG_PATH(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "from_env.yaml", sqliteYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.DB.Driver)
}

func TestLoad_LocalYAMLInWorkingDir(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	dir := t.TempDir()
	writeFile(t, dir, "local.yaml", sampleYAML)
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/alumni")
	t.Setenv("VOTE_MAX_ATTEMPTS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/alumni", cfg.DB.DSN)
	require.Equal(t, 7, cfg.Votes.MaxAttempts)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidLimits(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", badLimitsYAML)

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "limits.default")
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	cfg := &Config{
		DB:        DBConfig{Driver: DriverPostgres},
		Limits:    LimitsConfig{Default: 20, Max: 100, MaxDepth: 16, MaxNodes: 2000},
		Votes:     VotesConfig{MaxAttempts: 3},
		Cache:     CacheConfig{SubjectSize: 10},
		Reconcile: ReconcileConfig{Hour: 3},
	}
	require.Error(t, cfg.validate())

	cfg.DB.DSN = "postgres://localhost/alumni"
	require.NoError(t, cfg.validate())

	cfg.DB.Driver = "mysql"
	require.Error(t, cfg.validate())
}
