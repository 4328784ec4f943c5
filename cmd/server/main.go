// Tile Server
// Serves slippy-map tiles and UTFGrid interaction documents rendered from
// geohash-grid aggregations over Elasticsearch-backed geo records.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v7"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/arxos/tile-server/internal/auditlog"
	"github.com/arxos/tile-server/internal/config"
	"github.com/arxos/tile-server/internal/geoquery"
	"github.com/arxos/tile-server/internal/httpapi"
	"github.com/arxos/tile-server/internal/pointcache"
	"github.com/arxos/tile-server/internal/querycache"
	"github.com/arxos/tile-server/internal/tilestore"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:           cfg.Elasticsearch.Hosts,
		CompressRequestBody: cfg.Elasticsearch.HTTPCompress,
	})
	if err != nil {
		log.Fatalf("failed to construct backing store client: %v", err)
	}
	if res, err := esClient.Info(); err != nil {
		log.Fatalf("failed to reach backing store: %v", err)
	} else {
		res.Body.Close()
	}
	logger.WithField("hosts", cfg.Elasticsearch.Hosts).Info("connected to backing store")

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpt)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	logger.Info("connected to redis")

	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("failed to construct minio client: %v", err)
	}
	tiles := tilestore.New(minioClient, cfg.MinioBucket)
	if err := tiles.EnsureBucket(ctx); err != nil {
		log.Fatalf("failed to ensure tile composite bucket: %v", err)
	}
	logger.WithField("bucket", cfg.MinioBucket).Info("connected to minio")

	// the audit trail is optional: with no DSN configured, Audit stays nil
	// and Server.audit becomes a no-op (see httpapi.Server.audit).
	var audit *auditlog.Logger
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping database: %v", err)
		}
		logger.Info("connected to postgres")
		audit = auditlog.New(db, logger)
	} else {
		logger.Info("AUDIT_DATABASE_URL not set, audit log disabled")
	}

	server := &httpapi.Server{
		Query:          geoquery.New(esClient),
		Points:         pointcache.New(),
		QueryCache:     querycache.New(redisClient, cfg.QueryCacheTTL),
		Tiles:          tiles,
		Audit:          audit,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		HTTPClient:     &http.Client{Timeout: 15 * time.Second},
	}

	addr := fmt.Sprintf(":%s", cfg.ListenPort)
	logger.WithField("addr", addr).Info("tile server listening")
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
