package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Document store
	StoreDriver string
	MongoURI    string
	MongoDB     string

	// Session tokens issued by the identity provider
	JWTSecret string

	// List cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ListCacheTTL  time.Duration

	// Error-log sink
	LogDBDSN         string
	LogRetentionDays int

	// Object storage
	S3Region        string
	S3Bucket        string
	AWSAccessKeyID  string
	AWSSecretKey    string
	UploadURLExpiry time.Duration

	// Reverse geocoding
	GeocoderURL     string
	GeocoderEnabled bool
	GeocoderTimeout time.Duration

	// Comments
	CommentFilterEnabled bool
	CommentsPageSize     int

	// Server
	Port                string
	CORSOrigins         string
	AppEnv              string
	SentryDSN           string
	RateLimitPerMinute  int
	WriteLimitPerMinute int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	return &Config{
		StoreDriver: getEnv("STORE_DRIVER", "mongo"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "spothole"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		ListCacheTTL:  parseDuration(getEnv("LIST_CACHE_TTL", "30s"), 30*time.Second),

		LogDBDSN:         getEnv("LOG_DB_DSN", ""),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		S3Region:        getEnv("AWS_S3_REGION", ""),
		S3Bucket:        getEnv("AWS_S3_BUCKET_NAME", ""),
		AWSAccessKeyID:  getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		UploadURLExpiry: parseDuration(getEnv("UPLOAD_URL_EXPIRY", "60s"), 60*time.Second),

		GeocoderURL:     getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderEnabled: parseBool(getEnv("GEOCODER_ENABLED", "false")),
		GeocoderTimeout: parseDuration(getEnv("GEOCODER_TIMEOUT", "5s"), 5*time.Second),

		CommentFilterEnabled: parseBool(getEnv("COMMENT_FILTER_ENABLED", "false")),
		CommentsPageSize:     parseInt(getEnv("COMMENTS_PAGE_SIZE", "5"), 5),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		RateLimitPerMinute:  parseInt(getEnv("RATE_LIMIT_PER_MINUTE", "120"), 120),
		WriteLimitPerMinute: parseInt(getEnv("WRITE_LIMIT_PER_MINUTE", "30"), 30),
	}
}

// UploadsEnabled reports whether enough S3 settings are present to sign uploads.
func (c *Config) UploadsEnabled() bool {
	return c.S3Region != "" && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
