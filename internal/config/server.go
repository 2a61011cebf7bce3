package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"UrbanScout/database/postgres"
	scanHandler "UrbanScout/internal/api/scan/handler"
	scanRepository "UrbanScout/internal/api/scan/repository"
	scanService "UrbanScout/internal/api/scan/service"
	"UrbanScout/internal/middleware"
	"UrbanScout/pkg/gemini"
	"UrbanScout/pkg/groq"
	"UrbanScout/pkg/redis"
	"UrbanScout/pkg/s3"
	"UrbanScout/pkg/streetview"
	"UrbanScout/pkg/utils"
	"UrbanScout/pkg/vision"
	websocketPkg "UrbanScout/pkg/websocket"
)

type ServerOption func(*Server) error

type Server struct {
	engine           *fiber.App
	db               *sqlx.DB
	log              *logrus.Logger
	middleware       middleware.Middleware
	validator        *validator.Validate
	utils            utils.IUtils
	handlers         []handler
	redisServer      redis.IRedis
	detectionSocket  websocketPkg.IWebsocket
	geminiClient     gemini.IGemini
	detectionEngine  vision.IEngine
	streetViewClient streetview.ItfStreetView
	groqClient       groq.IGroq
	s3Client         s3.ItfS3
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithWebSocket(webSocket websocketPkg.IWebsocket) ServerOption {
	return func(s *Server) error {
		s.detectionSocket = webSocket
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithStreetViewClient() ServerOption {
	return func(s *Server) error {
		s.streetViewClient = streetview.New()
		return nil
	}
}

func WithGroqClient() ServerOption {
	return func(s *Server) error {
		s.groqClient = groq.New()
		return nil
	}
}

// WithGeminiClient is optional: without an API key the scan pipeline simply
// runs on the primary detector alone.
func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		if os.Getenv("GEMINI_API_KEY") == "" {
			if s.log != nil {
				s.log.Warn("GEMINI_API_KEY not set, secondary detector disabled")
			}
			return nil
		}

		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

// WithDetectionEngine must come after the websocket and Gemini options.
func WithDetectionEngine() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before the detection engine")
		}
		if s.detectionSocket == nil {
			return fmt.Errorf("detection websocket must be initialized before the detection engine")
		}

		var secondary vision.Detector
		if s.geminiClient != nil {
			secondary = gemini.NewBoxDetector(s.geminiClient)
		}

		s.detectionEngine = vision.NewEngine(s.log, s.detectionSocket, secondary, vision.DefaultOptions())
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Scan Domain
	scanRepo := scanRepository.New(s.db, s.log)
	scanServices := scanService.New(s.log, scanRepo, s.detectionEngine, s.streetViewClient, s.groqClient, s.s3Client, s.redisServer, s.utils)
	scanHandlers := scanHandler.New(s.log, s.validator, s.middleware, scanServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, scanHandlers)
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		if s.detectionSocket != nil {
			s.detectionSocket.CloseConnection()
		}
		return err
	}

	return nil
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
