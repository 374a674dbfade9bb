package api

import (
	"crypto"
	"time"
)

type ServerConfig struct {
	Auth  AuthConfig
	S3    S3Config
	DB    DBConfig
	Redis RedisConfig

	// RateLimitPerMinute 是每個 IP 每分鐘可呼叫登入與註冊的次數，0 代表不限制
	RateLimitPerMinute int64
}

type AuthConfig struct {
	PrivateKey crypto.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	Moderation string
}
