package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "8000", c.AppPort)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, "media", c.MediaRoot)
	assert.Equal(t, "/media/", c.MediaURL)
	assert.Equal(t, uint(1), c.DefaultAuthorID)
	assert.Equal(t, 10, c.ImageMaxUploadMB)
	assert.False(t, c.ServeMedia, "media is not served outside debug mode")
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
}

func TestApplyDefaultsServesMediaInDebug(t *testing.T) {
	c := AppConfig{GinMode: "debug", MediaURL: "uploads", DBDriver: "postgres"}
	applyDefaults(&c)

	assert.True(t, c.ServeMedia)
	assert.Equal(t, "/uploads/", c.MediaURL)
	assert.Equal(t, "5432", c.DBPort)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLITE")
	t.Setenv("MEDIA_ROOT", "/var/photoblog")
	t.Setenv("SERVE_MEDIA", "true")
	t.Setenv("DEFAULT_AUTHOR_ID", "7")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	var c AppConfig
	applyEnvOverrides(&c)
	applyDefaults(&c)

	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "/var/photoblog", c.MediaRoot)
	assert.True(t, c.ServeMedia)
	assert.Equal(t, uint(7), c.DefaultAuthorID)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
}

func TestLoadJSONConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"app": {"AppPort": "8081", "JWTSecret": "s3cret", "GinMode": "debug"},
		"database": {"Driver": "sqlite", "DatabaseURI": "file::memory:"},
		"media": {"Root": "/srv/media", "URL": "/files/", "Serve": false, "MaxUploadMB": 4},
		"bootstrap": {"DefaultAuthorID": 3, "Username": "owner"},
		"log": {"Level": "debug", "Compress": true}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	applyDefaults(&c)

	assert.Equal(t, "8081", c.AppPort)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "/srv/media", c.MediaRoot)
	assert.Equal(t, "/files/", c.MediaURL)
	assert.False(t, c.ServeMedia, "explicit Serve=false wins over debug mode")
	assert.Equal(t, 4, c.ImageMaxUploadMB)
	assert.Equal(t, uint(3), c.DefaultAuthorID)
	assert.Equal(t, "owner", c.BootstrapUsername)
	assert.True(t, c.LogCompress)
}

func TestLoadJSONConfigMissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, loadJSONConfig(path, &c))
}

func TestOpenDatabaseSQLite(t *testing.T) {
	conn, err := OpenDatabase(AppConfig{DBDriver: "sqlite", DatabaseURI: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)

	var one int
	require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestOpenDatabaseUnknownDriver(t *testing.T) {
	_, err := OpenDatabase(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}
