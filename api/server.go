package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	redisAdapter "carlot/adapters/redis"
	internalS3 "carlot/adapters/s3"
	"carlot/api/token"
	"carlot/listing"
	"carlot/models"
)

type ServerImpl struct {
	db          *gorm.DB
	redisClient redis.UniversalClient
	issuer      *token.Issuer
	listings    *listing.Service
	producer    redisAdapter.IProducer[listing.StatusChanged]
	limiter     *RateLimiter
	logger      *slog.Logger

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 初始化S3客戶端
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	s3Operator, err := internalS3.NewS3Operator(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create S3 operator, err=%w", op, err)
	}

	// 初始化資料庫連線
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	gormConfig := &gorm.Config{TranslateError: true}
	if config.DB.Schema != "" {
		gormConfig.NamingStrategy = schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		}
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}

	// 初始化Redis連線
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	return newServer(config, db, redisClient, s3Operator)
}

// newServer 以已建立的連線組裝服務，測試時傳入 sqlite 與 miniredis
func newServer(config ServerConfig, db *gorm.DB, redisClient redis.UniversalClient, blob internalS3.IBlobStore) (*ServerImpl, error) {
	const op = "newServer"
	logger := slog.Default()
	prefix := config.Redis.KeyPrefix

	opts := []listing.Option{
		listing.WithLogger(logger),
		listing.WithLocker(redisAdapter.NewLocker(
			redisClient,
			redisAdapter.WithAutoRenewMutexPrefix(prefix+"lock:"),
		)),
	}
	var producer redisAdapter.IProducer[listing.StatusChanged]
	if config.Redis.StreamKeys.Moderation != "" {
		p, err := redisAdapter.NewProducer[listing.StatusChanged](
			redisClient,
			config.Redis.StreamKeys.Moderation,
			redisAdapter.WithProducerLogger[listing.StatusChanged](logger),
			redisAdapter.WithProducerMaxLen[listing.StatusChanged](10000),
		)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create moderation producer, err=%w", op, err)
		}
		producer = p
		opts = append(opts, listing.WithPublisher(producer))
	}

	store := redisAdapter.NewStore(redisClient, redisAdapter.WithStorePrefix(prefix+"refresh:"))
	issuer := token.NewIssuer(
		config.Auth.PrivateKey,
		store,
		token.WithIssuerName(config.Auth.Issuer),
		token.WithAccessTTL(config.Auth.AccessTTL),
		token.WithRefreshTTL(config.Auth.RefreshTTL),
	)

	return &ServerImpl{
		db:          db,
		redisClient: redisClient,
		issuer:      issuer,
		listings:    listing.NewService(db, blob, opts...),
		producer:    producer,
		limiter:     NewRateLimiter(redisClient, prefix+"rate_limit:", config.RateLimitPerMinute, time.Minute),
		logger:      logger,
		config:      config,
	}, nil
}

func (impl *ServerImpl) Start() {
	// 啟動審核事件的producer
	if impl.producer != nil {
		impl.producer.Start()
	}
}

func (impl *ServerImpl) Close() {
	// 關閉producer
	if impl.producer != nil {
		impl.producer.Close()
	}
}

// Migrate 建立或更新資料表
func (impl *ServerImpl) Migrate() error {
	const op = "Migrate"
	if err := impl.db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("[%s] Fail to migrate schema, err=%w", op, err)
	}
	return nil
}

// RegisterHandlers 註冊所有路由
func (impl *ServerImpl) RegisterHandlers(router gin.IRouter) {
	auth := router.Group("/auth")
	auth.POST("/register", impl.rateLimit("register"), impl.Register)
	auth.POST("/login", impl.rateLimit("login"), impl.Login)
	auth.POST("/refresh", impl.Refresh)
	auth.POST("/verify", impl.Verify)
	auth.GET("/me", impl.authenticate, impl.requireUser, impl.Me)

	api := router.Group("/api", impl.authenticate)

	listings := api.Group("/listings")
	listings.GET("", impl.ListListings)
	listings.POST("", impl.CreateListing)
	listings.GET("/:id", impl.GetListing)
	listings.PUT("/:id", impl.UpdateListing)
	listings.PATCH("/:id", impl.PartialUpdateListing)
	listings.DELETE("/:id", impl.DeleteListing)
	listings.POST("/:id/upload_image", impl.UploadListingImage)
	listings.DELETE("/:id/images/:image_id", impl.DeleteListingImage)

	registerCatalog[models.Brand](impl, api, "/brands")
	registerCatalog[models.CarModel](impl, api, "/models")
	registerCatalog[models.Category](impl, api, "/categories")
	registerCatalog[models.FuelType](impl, api, "/fuel-types")
	registerCatalog[models.TransmissionType](impl, api, "/transmission-types")
	registerCatalog[models.BodyType](impl, api, "/body-types")
	registerCatalog[models.DriveType](impl, api, "/drive-types")
	registerCatalog[models.Region](impl, api, "/regions")
	registerCatalog[models.City](impl, api, "/cities")
}
