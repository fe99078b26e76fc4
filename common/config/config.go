package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "BRACKET"

type Config struct {
	AWS       AWSConfig
	DynamoDB  DynamoDBConfig
	Server    ServerConfig
	NATS      NATSConfig
	Redis     RedisConfig
	Auth      AuthConfig
	GameStats GameStatsConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Wallet    WalletConfig
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type DynamoDBConfig struct {
	TableName        string
	MaxRetries       int
	UseLocalEndpoint bool
}

type ServerConfig struct {
	HTTPPort               int
	GRPCPort               int
	Environment            string
	LogLevel               string
	AllowedOrigins         []string
	ShutdownTimeoutSeconds int
}

type NATSConfig struct {
	URL                  string
	MaxReconnect         int
	ReconnectWaitSeconds int
	TimeoutSeconds       int
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int
	Issuer        string
}

type GameStatsConfig struct {
	// BaseURL may contain a {region} placeholder, e.g. https://{region}.api.example.gg
	BaseURL            string
	APIKey             string
	TimeoutSeconds     int
	RateLimitPerSecond int
	// LimiterBackend is "memory" (per process) or "redis" (shared).
	LimiterBackend string
	DefaultRegion  string
}

type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type SchedulerConfig struct {
	StatusSweepSeconds int
	MatchPollSeconds   int
}

type WalletConfig struct {
	StartingBalance int64
}

func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func (c GameStatsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "eu-central-1")
	v.SetDefault("dynamodb.tablename", "bracket")
	v.SetDefault("dynamodb.maxretries", 3)
	v.SetDefault("server.httpport", 8080)
	v.SetDefault("server.grpcport", 9090)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("server.allowedorigins", []string{"*"})
	v.SetDefault("server.shutdowntimeoutseconds", 15)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.maxreconnect", 10)
	v.SetDefault("nats.reconnectwaitseconds", 2)
	v.SetDefault("nats.timeoutseconds", 5)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.poolsize", 10)
	v.SetDefault("auth.tokenttlhours", 24)
	v.SetDefault("auth.issuer", "bracket-api")
	v.SetDefault("gamestats.timeoutseconds", 10)
	v.SetDefault("gamestats.ratelimitpersecond", 20)
	v.SetDefault("gamestats.limiterbackend", "memory")
	v.SetDefault("gamestats.defaultregion", "eu")
	v.SetDefault("scheduler.statussweepseconds", 60)
	v.SetDefault("scheduler.matchpollseconds", 120)
	v.SetDefault("wallet.startingbalance", 1000)

	// Keys without a sensible default still need registering so that
	// Unmarshal picks them up from the environment.
	for _, key := range []string{
		"aws.accesskeyid", "aws.secretaccesskey", "aws.endpoint",
		"dynamodb.uselocalendpoint",
		"redis.password", "redis.db",
		"auth.jwtsecret",
		"gamestats.baseurl", "gamestats.apikey",
		"storage.endpoint", "storage.region", "storage.bucket",
		"storage.accesskeyid", "storage.secretaccesskey", "storage.publicbaseurl",
	} {
		if !v.IsSet(key) {
			v.SetDefault(key, "")
		}
	}
}
