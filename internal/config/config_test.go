package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Elasticsearch.Hosts)
	assert.True(t, cfg.Elasticsearch.SniffOnStart)
	assert.Equal(t, "8080", cfg.ListenPort)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	os.Setenv("ELASTICSEARCH_URL", "http://es.internal:9200")
	os.Setenv("PORT", "9090")
	defer os.Unsetenv("ELASTICSEARCH_URL")
	defer os.Unsetenv("PORT")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, []string{"http://es.internal:9200"}, cfg.Elasticsearch.Hosts)
	assert.Equal(t, "9090", cfg.ListenPort)
}

func TestLoadParsesTimeoutSeconds(t *testing.T) {
	os.Setenv("REQUEST_TIMEOUT_SECONDS", "15")
	defer os.Unsetenv("REQUEST_TIMEOUT_SECONDS")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestEnvTransformDropsUnknownVariables(t *testing.T) {
	path, _ := envTransform("HOME", "/root")
	assert.Equal(t, "", path)

	path, value := envTransform("AUDIT_DATABASE_URL", "postgres://localhost/audit")
	assert.Equal(t, "database_url", path)
	assert.Equal(t, "postgres://localhost/audit", value)
}
