package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"UrbanScout/internal/config"
	"UrbanScout/pkg/log"
	"UrbanScout/pkg/redis"
	websocketPkg "UrbanScout/pkg/websocket"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	redisServer := redis.New()
	websocket := websocketPkg.NewAIWebSocketClient()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithRedisServer(redisServer),
		config.WithWebSocket(websocket),
		config.WithMiddleware(),
		config.WithS3Client(),
		config.WithStreetViewClient(),
		config.WithGroqClient(),
		config.WithGeminiClient(),
		config.WithDetectionEngine(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
	websocket.CloseConnection()
}
