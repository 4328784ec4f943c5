// Package config loads the service's runtime configuration: backing-store
// (Elasticsearch) connection tunables, and the Redis/MinIO/Postgres DSNs for
// the ambient query cache, composite-tile store and audit log. Loading is
// layered with koanf: struct defaults, then an optional YAML file named by
// TILESERVER_CONFIG, then environment variables, which always win. A .env
// file in the working directory is folded into the environment first via
// godotenv.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Elasticsearch holds the backing-store client connection tunables.
type Elasticsearch struct {
	Hosts                 []string      `koanf:"hosts"`
	SniffOnStart          bool          `koanf:"sniff_on_start"`
	SniffOnConnectionFail bool          `koanf:"sniff_on_connection_fail"`
	SnifferTimeout        time.Duration `koanf:"sniffer_timeout"`
	SniffTimeout          time.Duration `koanf:"sniff_timeout"`
	HTTPCompress          bool          `koanf:"http_compress"`
	Timeout               time.Duration `koanf:"timeout"`
}

// Config is the fully resolved service configuration.
type Config struct {
	Elasticsearch Elasticsearch `koanf:"elasticsearch"`

	ListenPort string `koanf:"listen_port"`

	RedisURL      string        `koanf:"redis_url"`
	QueryCacheTTL time.Duration `koanf:"query_cache_ttl"`

	MinioEndpoint  string `koanf:"minio_endpoint"`
	MinioAccessKey string `koanf:"minio_access_key"`
	MinioSecretKey string `koanf:"minio_secret_key"`
	MinioUseSSL    bool   `koanf:"minio_use_ssl"`
	MinioBucket    string `koanf:"minio_bucket"`

	// DatabaseURL is the Postgres DSN for the optional request audit log
	// (internal/auditlog). Empty disables the audit trail entirely: no
	// connection is attempted and Server.Audit stays nil.
	DatabaseURL string `koanf:"database_url"`

	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// Default returns the configuration used when neither a config file nor
// overriding environment variables are present.
func Default() Config {
	return Config{
		Elasticsearch: Elasticsearch{
			Hosts:                 []string{"http://localhost:9200"},
			SniffOnStart:          true,
			SniffOnConnectionFail: true,
			SnifferTimeout:        60 * time.Second,
			SniffTimeout:          10 * time.Second,
			HTTPCompress:          false,
			Timeout:               60 * time.Second,
		},
		ListenPort:     "8080",
		RedisURL:       "redis://localhost:6379/0",
		QueryCacheTTL:  30 * time.Second,
		MinioEndpoint:  "localhost:9000",
		MinioAccessKey: "tileserver",
		MinioSecretKey: "tileserver_dev",
		MinioUseSSL:    false,
		MinioBucket:    "tile-composites",
		DatabaseURL:    "",
		RequestTimeout: 60 * time.Second,
	}
}

// envMappings maps the flat environment variable names the service accepts
// to their nested koanf config paths. Variables not listed here are ignored.
var envMappings = map[string]string{
	"elasticsearch_url":       "elasticsearch.hosts",
	"redis_url":               "redis_url",
	"minio_endpoint":          "minio_endpoint",
	"minio_access_key":        "minio_access_key",
	"minio_secret_key":        "minio_secret_key",
	"minio_bucket":            "minio_bucket",
	"audit_database_url":      "database_url",
	"port":                    "listen_port",
	"request_timeout_seconds": "request_timeout",
}

// Load resolves configuration from, in increasing precedence: the struct
// defaults, a YAML file named by TILESERVER_CONFIG (if set), a .env file in
// the working directory (if present), and finally direct environment
// variable overrides.
func Load() (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("loading defaults: %w", err)
	}

	if path := os.Getenv("TILESERVER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// best-effort: a missing .env file is not an error
	_ = godotenv.Load()

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return cfg, fmt.Errorf("loading environment variables: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshalling configuration: %w", err)
	}

	return cfg, nil
}

// envTransform maps a recognised environment variable to its config path,
// dropping everything else. REQUEST_TIMEOUT_SECONDS carries a bare second
// count and is rewritten to a duration literal so the standard duration
// decode hook can parse it.
func envTransform(key, value string) (string, interface{}) {
	path, ok := envMappings[strings.ToLower(key)]
	if !ok {
		return "", nil
	}
	if path == "request_timeout" {
		return path, value + "s"
	}
	return path, value
}
