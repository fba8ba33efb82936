package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	base := t.TempDir()
	t.Setenv("JANUS_PATH", base)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, base, cfg.BasePath)
	assert.Equal(t, filepath.Join(base, "data"), cfg.DataPath)
	assert.Equal(t, "8084", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(120), cfg.Server.RateLimit)
	assert.Equal(t, time.Minute, cfg.Server.RateWindow)
	assert.Equal(t, 4, cfg.Render.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, PublishNone, cfg.Publish.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	base := t.TempDir()
	t.Setenv("JANUS_PATH", base)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "conf"), 0755))
	doc := `data_path: /srv/maintenance
log:
  level: debug
  format: json
server:
  allowed_origins:
    - https://ops.example.com
    - https://admin.example.com
publish:
  backend: s3
  s3:
    bucket: maintenance-scripts
`
	require.NoError(t, os.WriteFile(DefaultFile(), []byte(doc), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/maintenance", cfg.DataPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"https://ops.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, PublishS3, cfg.Publish.Backend)
	assert.Equal(t, "maintenance-scripts", cfg.Publish.S3.Bucket)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("JANUS_PATH", base)
	file := filepath.Join(base, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: \"9000\"\n"), 0644))

	t.Setenv("JANUS_SERVER_PORT", "9100")
	t.Setenv("JANUS_RENDER_WORKERS", "8")
	t.Setenv("JANUS_SERVER_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Render.Workers)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_MalformedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "janus.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server: [\n"), 0644))

	_, err := Load(file)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DataPath: "/data",
			Log:      LogConfig{Level: "info", Format: "console"},
			Server:   ServerConfig{Port: "8084"},
			Render:   RenderConfig{Workers: 2},
			Publish:  PublishConfig{Backend: PublishNone},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short api key", func(c *Config) { c.Server.APIKey = "short" }, "server.api_key"},
		{"rate limit without window", func(c *Config) { c.Server.RateLimit = 10 }, "server.rate_window"},
		{"no workers", func(c *Config) { c.Render.Workers = 0 }, "render.workers"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"s3 without bucket", func(c *Config) { c.Publish.Backend = PublishS3 }, "publish.s3.bucket"},
		{"unknown backend", func(c *Config) { c.Publish.Backend = "ftp" }, "publish.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDistDir(t *testing.T) {
	c := &Config{DataPath: "/data"}
	assert.Equal(t, filepath.Join("/data", "m1", "dist"), c.DistDir("m1"))

	c.DistPath = "/out"
	assert.Equal(t, filepath.Join("/out", "m1"), c.DistDir("m1"))
}
