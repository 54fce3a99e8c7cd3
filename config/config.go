package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	App      AppConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AppConfig 搶票流程本身的參數
type AppConfig struct {
	// 冪等標記的存活時間：要能涵蓋客戶端的重試風暴
	IdempotencyTTL time.Duration
	// Settlement worker 數量
	SettlementWorkerCount int
	// Settlement 隊列的 buffer 大小（記憶體版）
	SettlementQueueSize int
	// 入隊失敗的重試次數
	EnqueueMaxRetries int
	// 入隊重試的間隔
	EnqueueRetryBackoff time.Duration
	// Naive 路徑的模擬處理延遲（故意放大 race window）
	NaiveDelay time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		App:      GetAppConfig(),
	}
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // 測試 DB 用 5433 port
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	return &Config{
		Database: *testConfig,
		Redis:    testRedisConfig,
		App: AppConfig{
			IdempotencyTTL:        30 * time.Minute,
			SettlementWorkerCount: 4,
			SettlementQueueSize:   1024,
			EnqueueMaxRetries:     3,
			EnqueueRetryBackoff:   50 * time.Millisecond,
			NaiveDelay:            100 * time.Millisecond,
		},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetAppConfig() AppConfig {
	return AppConfig{
		IdempotencyTTL:        time.Duration(getEnvInt("IDEMPOTENCY_TTL_SECONDS", 1800)) * time.Second,
		SettlementWorkerCount: getEnvInt("SETTLEMENT_WORKER_COUNT", 4),
		SettlementQueueSize:   getEnvInt("SETTLEMENT_QUEUE_SIZE", 1024),
		EnqueueMaxRetries:     getEnvInt("ENQUEUE_MAX_RETRIES", 3),
		EnqueueRetryBackoff:   time.Duration(getEnvInt("ENQUEUE_RETRY_BACKOFF_MS", 50)) * time.Millisecond,
		NaiveDelay:            time.Duration(getEnvInt("NAIVE_DELAY_MS", 100)) * time.Millisecond,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(err)
	}
	return n
}
