package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"social_match_service/internal/chat/app"
	"social_match_service/internal/chat/repository"
	"social_match_service/internal/chat/router"
	"social_match_service/pkg/config"
	"social_match_service/pkg/database"
	"social_match_service/pkg/logger"

	"social_match_service/internal/chat/domain"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	// 1. postgreSQL, both handles share one URL: gorm for the message rows,
	// pgx for user lookups
	pgURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password,
		cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)

	gormDB, err := database.NewGormConnection(database.Connection{
		ConnectStr:    pgURL,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", pgURL)),
			zap.Error(err),
		)
	}
	if err := repository.Migrate(gormDB); err != nil {
		logger.Log.Fatal("chat_messages migration failed", zap.Error(err))
	}

	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    pgURL,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL pool after retries",
			zap.String("address", fmt.Sprintf("[%s]", pgURL)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	// 2. redis, display name cache
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	userCache := database.NewRedisRepository[domain.ChatUser](redisClient)

	// 3. rabbitMQ, push dispatch queue
	rabbitConn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    cfg.Rabbit.URL,
		RetryCount:    cfg.Rabbit.RetryCount,
		RetryInterval: time.Duration(cfg.Rabbit.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect rabbitMQ err : %v", err))
	}
	defer rabbitConn.Close()

	rabbitCh, err := database.GetRabbitMQChannelWithRetry(rabbitConn, cfg.Rabbit.RetryCount, time.Duration(cfg.Rabbit.RetryInterval))
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("rabbitMQ channel err : %v", err))
	}
	if _, err := rabbitCh.QueueDeclare(cfg.Rabbit.Queue, true, false, false, false, nil); err != nil {
		logger.Log.Fatal(fmt.Sprintf("rabbitMQ queue declare err : %v", err))
	}

	// 4. repositories
	msgRepo := repository.NewMessageRepository(gormDB)
	userRepo := repository.NewCachedUserRepository(
		repository.NewUserRepository(pool),
		userCache,
		cfg.Room.UserCacheTTL,
	)
	notifier := repository.NewRabbitPushNotifier(database.NewRabbitRepository(rabbitCh), cfg.Rabbit.Queue)

	// 5. in-memory room state, one instance each, injected everywhere
	hub := app.NewHub()
	presence := app.NewPresenceTracker()
	global := app.NewGlobalStore(cfg.Room.GlobalRoomCap)

	// 6. use cases and handlers
	historyUC := app.NewHistoryUseCase(msgRepo, global)
	wsHandler := app.NewChatWebsocketHandler(hub, presence, global, msgRepo, userRepo, notifier)
	httpHandler := app.NewChatHTTPHandler(historyUC, hub)

	// 7. fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, wsHandler, httpHandler)

	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
