package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"pluto_chat_service/internal/chat/app"
	"pluto_chat_service/internal/chat/repository"
	"pluto_chat_service/internal/chat/router"
	"pluto_chat_service/pkg/config"
	"pluto_chat_service/pkg/database"
	"pluto_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	// 1. 建立 Mongo 連線 (房間與訊息)
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval) * time.Second,
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 2. 建立 Redis 連線 (近期訊息快取)
	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 3. Kafka 訊息歸檔，關閉時整條路徑停用
	var archive repository.MessageArchive
	if cfg.Kafka.Enabled {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    5,
			RetryInterval: 3 * time.Second,
		})
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect kafka err : %v", err))
		}
		defer writer.Close()
		archive = repository.NewKafkaMessageArchive(writer)
	}

	// 4. 相片圖床，provider 決定走 minio 或 freeimage.host
	var imageHost repository.ImageHost
	switch cfg.Upload.Provider {
	case "minio":
		minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:      cfg.MinIO.Endpoint,
			User:          cfg.MinIO.User,
			Password:      cfg.MinIO.Password,
			BucketName:    cfg.MinIO.BucketName,
			UseSSL:        cfg.MinIO.UseSSL,
			RetryCount:    5,
			RetryInterval: 3 * time.Second,
		})
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
		}
		imageHost = repository.NewMinIOImageHost(minioClient)
	default:
		imageHost = repository.NewFreeImageHost(cfg.Upload.Endpoint, cfg.Upload.APIKey)
	}

	// 5. 初始化 Repository
	roomRepo := repository.NewMongoRoomRepository(mongo.Database)
	userRepo := repository.NewMongoUserRepository(mongo.Database)
	cache := repository.NewRedisMessageCache(redisClient)

	// 6. 初始化 UseCases
	hub := app.NewHub()
	roomUC := app.NewRoomUseCase(roomRepo, cache, archive, hub)
	userUC := app.NewUserUseCase(userRepo)
	historyUC := app.NewHistoryUseCase(roomRepo, cache)
	uploadUC := app.NewPhotoUploadUseCase(roomUC, imageHost)

	// 7. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 註冊路由
	router.RegisterRoutes(r,
		app.NewChatHTTPHandler(roomUC, userUC, historyUC, uploadUC),
		app.NewChatWebsocketHandler(roomUC, userUC, historyUC, hub))

	// Listen
	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
