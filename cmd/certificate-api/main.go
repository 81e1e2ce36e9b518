package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"exam-portal/certificate-service/internal/certificates"
	"exam-portal/certificate-service/internal/config"
	"exam-portal/certificate-service/internal/exams"
	"exam-portal/certificate-service/pkg/pdf"
	"exam-portal/certificate-service/pkg/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	ctx := context.Background()

	// Attempt source
	examDB, err := openExamDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to exam database", zap.Error(err))
	}
	if cfg.Database.Driver == "sqlite" {
		if err := exams.AutoMigrate(examDB); err != nil {
			logger.Fatal("Failed to migrate exam tables", zap.Error(err))
		}
	}
	attempts := exams.NewRepository(examDB)

	// Object storage
	var awsCfg aws.Config
	needsAWS := cfg.Storage.Driver == "s3" || cfg.Registry.Driver == "dynamodb"
	if needsAWS {
		awsCfg, err = storage.LoadAWSConfig(ctx, storage.AWSOptions{
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			logger.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
	}

	var s3Client storage.S3Client
	if cfg.Storage.Driver == "memory" {
		logger.Warn("Using in-memory object storage, certificates will not survive a restart")
		s3Client = storage.NewMemoryS3Client("")
	} else {
		s3Client = storage.NewS3Client(awsCfg, storage.S3Options{
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
	}
	provider := certificates.NewStorageProvider(s3Client, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL, cfg.Storage.PresignExpiry)

	// Certificate registry
	var repo certificates.Repository
	switch cfg.Registry.Driver {
	case "dynamodb":
		repo = certificates.NewDynamoRepository(dynamodb.NewFromConfig(awsCfg), cfg.Registry.DynamoTable)
	default:
		db, err := openRegistryDB(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to registry database", zap.Error(err))
		}
		defer db.Close()
		sqlRepo := certificates.NewSQLRepository(db)
		if err := sqlRepo.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate certificates table", zap.Error(err))
		}
		repo = sqlRepo
	}

	// Certificate pipeline
	layout, err := certificates.LoadLayout(cfg.Certificates.LayoutPath)
	if err != nil {
		logger.Fatal("Failed to load certificate layout", zap.Error(err))
	}
	location, err := cfg.Certificates.Location()
	if err != nil {
		logger.Fatal("Failed to load certificate time zone", zap.Error(err))
	}
	fonts := pdf.DefaultFontSet()

	resolver := certificates.NewTemplateResolver(provider, cfg.Storage.TemplateName, cfg.Storage.TemplateCacheTTL, layout, fonts, logger)
	assembler := certificates.NewAssembler(layout, fonts, logger)
	service := certificates.NewService(repo, attempts, resolver, assembler, provider, location, logger)
	handler := certificates.NewHandler(service, logger)

	// Setup Router
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	handler.RegisterRoutes(router)

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("registry", cfg.Registry.Driver),
	)

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func openExamDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	if cfg.Driver == "sqlite" {
		return gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	}
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	return db, nil
}

func openRegistryDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Driver == "sqlite" {
		return sqlx.Connect("sqlite3", cfg.SQLitePath)
	}
	db, err := sqlx.Connect("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	return db, nil
}
