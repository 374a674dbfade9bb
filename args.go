package main

import (
	"crypto"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"carlot/api"
)

func ParseArgs() Args {
	// 先載入 .env，檔案不存在時忽略
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.Bool("migrate", false, "auto migrate the database schema before serving")

	// auth config
	pflag.String("auth-private-key", "", "PEM encoded Ed25519 private key (PKCS8)")
	pflag.String("auth-issuer", "carlot", "")
	pflag.Duration("auth-access-ttl", 5*time.Minute, "")
	pflag.Duration("auth-refresh-ttl", 24*time.Hour, "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "carlot:", "")

	// redis stream keys
	pflag.String("redis-stream-key-for-moderation", "carlot-moderation-stream", "")

	// rate limit
	pflag.Int64("rate-limit-per-minute", 10, "login and register requests per client IP per minute, 0 to disable")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CARLOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// 解析簽章用的私鑰
	var signer crypto.Signer
	if pem := viper.GetString("auth-private-key"); pem != "" {
		key, err := parsePrivateKey(pem)
		if err != nil {
			slog.Error("Invalid auth private key", slog.Any("error", err))
		}
		signer = key
	}

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		Migrate:   viper.GetBool("migrate"),
		ServerConfig: api.ServerConfig{
			Auth: api.AuthConfig{
				PrivateKey: signer,
				Issuer:     viper.GetString("auth-issuer"),
				AccessTTL:  viper.GetDuration("auth-access-ttl"),
				RefreshTTL: viper.GetDuration("auth-refresh-ttl"),
			},
			S3: api.S3Config{
				Endpoint:        viper.GetString("s3-endpoint"),
				Bucket:          viper.GetString("s3-bucket"),
				PublicBaseURL:   viper.GetString("s3-public-base-url"),
				AccessKeyID:     viper.GetString("s3-access-key-id"),
				SecretAccessKey: viper.GetString("s3-secret-access-key"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:      viper.GetString("redis-addr"),
				Password:  viper.GetString("redis-password"),
				DB:        viper.GetInt("redis-db"),
				KeyPrefix: viper.GetString("redis-key-prefix"),
				StreamKeys: api.RedisStreamKeys{
					Moderation: viper.GetString("redis-stream-key-for-moderation"),
				},
			},
			RateLimitPerMinute: viper.GetInt64("rate-limit-per-minute"),
		},
	}
}

// parsePrivateKey 解析 PEM 格式的 Ed25519 私鑰
func parsePrivateKey(pem string) (crypto.Signer, error) {
	const op = "parsePrivateKey"
	key, err := jwt.ParseEdPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse PEM, err=%w", op, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("[%s] Key is not a signer", op)
	}
	return signer, nil
}

type Args struct {
	ServerURL    string
	Migrate      bool
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	config := args.ServerConfig
	return args.ServerURL != "" &&
		config.Auth.PrivateKey != nil &&
		config.DB.Host != "" &&
		config.DB.Database != "" &&
		config.Redis.Addr != "" &&
		config.S3.Bucket != ""
}
