package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFile — утилита записи временного файла конфигурации.
func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

// chdir — смена текущего рабочего каталога с авто-возвратом.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// Полный корректный YAML под текущую структуру config.go.
const sampleYAML = `
env: "prod"
http:
  host: "127.0.0.1"
  port: "9000"
  base_path: "/api/v2"
timeouts:
  service: "90s"
  shutdown: "5s"
limits:
  window: "30s"
  max_requests: 3
  max_image_bytes: 1048576
  allowed_mime_types: ["image/jpeg", "image/png"]
  max_prompt_len: 400
  history_size: 20
gemini:
  api_key: "g-key"
  model: "gemini-test"
falai:
  api_key: "f-key"
  image_size: "square"
  poll_interval: "500ms"
  deadline: "30s"
places:
  api_key: "p-key"
  base_url: "http://llm.local/v1/"
  model: "places-test"
history:
  backend: "redis"
  redis_url: "redis://localhost:6379/0"
  prefix: "hist"
s3:
  enabled: true
  endpoint: "minio:9000"
  root_user: "minio"
  root_password: "minio123"
  bucket: "images"
  public_base_url: "http://cdn.local/images"
identity:
  jwt_secret: "secret"
  issuer: "idp"
recaptcha:
  enabled: true
  secret: "rc-secret"
  min_score: 0.7
`

// Минимальный YAML (всё остальное — через дефолты/ENV).
const minimalYAML = `
env: "local"
`

// Некорректный YAML для проверки сообщений об ошибке.
const brokenYAML = `
env: [unclosed
`

func TestHTTPConfig_Addr(t *testing.T) {
	t.Parallel()
	cfg := HTTPConfig{Host: "0.0.0.0", Port: "8080"}
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoad_WithExplicitPath_OK(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr())
	require.Equal(t, "/api/v2", cfg.HTTP.BasePath)
	require.Equal(t, 90*time.Second, cfg.Timeouts.Service)
	require.Equal(t, 5*time.Second, cfg.Timeouts.Shutdown)

	require.Equal(t, 30*time.Second, cfg.Limits.Window)
	require.Equal(t, 3, cfg.Limits.MaxRequests)
	require.Equal(t, int64(1048576), cfg.Limits.MaxImageBytes)
	require.Equal(t, []string{"image/jpeg", "image/png"}, cfg.Limits.AllowedMIMETypes)
	require.Equal(t, 400, cfg.Limits.MaxPromptLen)
	require.Equal(t, 20, cfg.Limits.HistorySize)

	require.Equal(t, "gemini-test", cfg.Gemini.Model)
	require.Equal(t, "square", cfg.FalAI.ImageSize)
	require.Equal(t, 500*time.Millisecond, cfg.FalAI.PollInterval)
	require.Equal(t, "http://llm.local/v1/", cfg.Places.BaseURL)

	require.Equal(t, "redis", cfg.History.Backend)
	require.Equal(t, "hist", cfg.History.Prefix)
	require.True(t, cfg.S3.Enabled)
	require.Equal(t, "images", cfg.S3.Bucket)
	require.Equal(t, "idp", cfg.Identity.Issuer)
	require.InDelta(t, 0.7, cfg.Recaptcha.MinScore, 1e-9)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "min.yaml", minimalYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	require.Equal(t, "/api/v1", cfg.HTTP.BasePath)
	require.Equal(t, 60*time.Second, cfg.Limits.Window)
	require.Equal(t, 5, cfg.Limits.MaxRequests)
	require.Equal(t, int64(10*1024*1024), cfg.Limits.MaxImageBytes)
	require.Equal(t, []string{"image/jpeg", "image/png", "image/gif", "image/webp"}, cfg.Limits.AllowedMIMETypes)
	require.Equal(t, 500, cfg.Limits.MaxPromptLen)
	require.Equal(t, 50, cfg.Limits.HistorySize)
	require.Equal(t, "landscape_4_3", cfg.FalAI.ImageSize)
	require.Equal(t, time.Second, cfg.FalAI.PollInterval)
	require.Equal(t, 60*time.Second, cfg.FalAI.Deadline)
	require.Equal(t, "memory", cfg.History.Backend)
	require.Equal(t, "myoutfood_history", cfg.History.Prefix)
	require.False(t, cfg.S3.Enabled)
	require.False(t, cfg.Recaptcha.Enabled)
	require.InDelta(t, 0.5, cfg.Recaptcha.MinScore, 1e-9)
	require.Equal(t, "https://www.google.com/recaptcha/api/siteverify", cfg.Recaptcha.VerifyURL)
}

func TestLoad_WithExplicitPath_BrokenYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "broken.yaml", brokenYAML)

	_, err := Load(cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_WithExplicitPath_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "stat failed")
}

func TestLoad_WithCONFIG_PATH_OK(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "from_env_path.yaml", minimalYAML)
	t.Setenv("CONFIG_PATH", cfgPath)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
}

func TestLoad_WithLocalYAML_OK(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".", "local.yaml", sampleYAML)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "9000", cfg.HTTP.Port)
}

func TestLoad_EnvOnly_OverlayAndDefaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV", "local")
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("LIMITS_MAX_REQUESTS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "8181", cfg.HTTP.Port)
	require.Equal(t, 7, cfg.Limits.MaxRequests)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)
	t.Setenv("LIMITS_MAX_REQUESTS", "9")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Limits.MaxRequests)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "broken.yaml", brokenYAML)

	require.Panics(t, func() { _ = MustLoad(cfgPath) })
}

func validConfig() Config {
	return Config{
		Env:  "local",
		HTTP: HTTPConfig{Host: "0.0.0.0", Port: "8080"},
		Limits: LimitsConfig{
			Window: time.Minute, MaxRequests: 5, MaxImageBytes: 1,
			AllowedMIMETypes: []string{"image/jpeg"}, MaxPromptLen: 500, HistorySize: 50,
		},
		FalAI:     FalAIConfig{PollInterval: time.Second, Deadline: time.Minute},
		Breaker:   BreakerConfig{FailureRatio: 0.6},
		History:   HistoryConfig{Backend: "memory"},
		Recaptcha: RecaptchaConfig{MinScore: 0.5},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.HTTP.Port = "70000" }, wantErr: "http.port"},
		{name: "zero window", mutate: func(c *Config) { c.Limits.Window = 0 }, wantErr: "limits.window"},
		{name: "zero max requests", mutate: func(c *Config) { c.Limits.MaxRequests = 0 }, wantErr: "limits.max_requests"},
		{name: "no mime types", mutate: func(c *Config) { c.Limits.AllowedMIMETypes = nil }, wantErr: "allowed_mime_types"},
		{name: "poll > deadline", mutate: func(c *Config) { c.FalAI.PollInterval = 2 * time.Minute }, wantErr: "poll_interval"},
		{name: "bad ratio", mutate: func(c *Config) { c.Breaker.FailureRatio = 1.5 }, wantErr: "failure_ratio"},
		{name: "unknown backend", mutate: func(c *Config) { c.History.Backend = "disk" }, wantErr: "history.backend"},
		{name: "redis without url", mutate: func(c *Config) { c.History.Backend = "redis" }, wantErr: "redis_url"},
		{name: "s3 without bucket", mutate: func(c *Config) {
			c.S3 = S3Config{Enabled: true, Endpoint: "x", RootUser: "u", RootPassword: "p"}
		}, wantErr: "s3.bucket"},
		{name: "s3 without public base url", mutate: func(c *Config) {
			c.S3 = S3Config{Enabled: true, Endpoint: "x", RootUser: "u", RootPassword: "p", Bucket: "b"}
		}, wantErr: "s3.public_base_url"},
		{name: "recaptcha without secret", mutate: func(c *Config) { c.Recaptcha.Enabled = true }, wantErr: "recaptcha.secret"},
		{name: "prod without keys", mutate: func(c *Config) { c.Env = "prod" }, wantErr: "gemini.api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tt.mutate(&c)

			err := c.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
