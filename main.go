package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventboard/config"
	"eventboard/db"
	"eventboard/feed"
	"eventboard/middlewares"
	"eventboard/models"
	"eventboard/routes"
	"eventboard/storage"
	"eventboard/utils"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger()

	// Postgres (users)
	sqldb, err := db.Open(cfg.PGDSN)
	if err != nil {
		log.Fatal("postgres error:", err)
	}
	defer sqldb.Close()

	// Mongo (events)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mg, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("mongo.Connect error:", err)
	}
	if err := mg.Ping(ctx, nil); err != nil {
		log.Fatal("mongo ping error:", err)
	}
	defer func() { _ = mg.Disconnect(context.Background()) }()

	eventsCol := mg.Database(cfg.MongoDB).Collection("events")
	events := models.NewMongoEventRepository(eventsCol)

	// Redis (response cache + quota)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	inv := utils.NewCacheInvalidator(rdb)

	// S3 (attachments)
	blobs := storage.NewS3BlobStore(storage.S3Config{
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Endpoint:        cfg.S3Endpoint,
		PublicBaseURL:   cfg.S3PublicBaseURL,
	})

	// Live mirror over the whole collection, warming the attachment
	// classification cache as snapshots arrive.
	classifier := utils.NewAttachmentClassifier(&http.Client{Timeout: 10 * time.Second})
	mirror := feed.NewMirror(events, models.EventScope{}, classifier, logger)
	mirror.Start(context.Background())
	defer mirror.Close()

	server := gin.Default()
	server.Use(middlewares.ResponseCache(rdb, 30*time.Second))

	routes.RegisterRoutes(server,
		models.NewSQLUserRepository(sqldb),
		events, mirror, blobs, rdb, inv, logger)

	logger.Info("listening", "port", cfg.Port, "env", cfg.Environment)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatal("gin.Run error:", err)
	}
}
