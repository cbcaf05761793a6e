package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Server
	Port        string
	Host        string
	Environment string

	// MongoDB
	MongoURI     string
	DatabaseName string
	MongoTimeout int

	// JWT
	JWTSecret     string
	JWTExpiration int // hours

	// CORS
	AllowedOrigins []string

	// Rate limiting (60/min + 1000/day authenticated,
	// 30/min + 500/day anonymous)
	RateLimitEnabled     bool
	AuthBurstPerMinute   int
	AuthSustainedPerDay  int
	AnonBurstPerMinute   int
	AnonSustainedPerDay  int

	// Uploads
	UploadDir     string
	PublicBaseURL string

	// Flutterwave
	FlutterwaveSecretKey string
	FlutterwavePublicKey string
	FlutterwaveBaseURL   string

	// VerifyMe
	VerifyMeAPIKey  string
	VerifyMeBaseURL string

	// Africa's Talking
	ATUsername string
	ATAPIKey   string
	ATSenderID string
	ATBaseURL  string

	// Push notifications
	PushServerKey string
	PushEndpoint  string

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	AdminEmail   string

	// Rewards
	RewardBatchSize     int
	RewardBatchDelaySec int
	RewardReportAmount  float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "0.0.0.0"),
		Environment: getEnv("ENV", "development"),

		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("DATABASE_NAME", "abiahub"),
		MongoTimeout: getEnvAsInt("MONGO_TIMEOUT", 10),

		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration: getEnvAsInt("JWT_EXPIRATION", 24),

		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		RateLimitEnabled:    getEnvAsBool("RATE_LIMIT_ENABLED", true),
		AuthBurstPerMinute:  getEnvAsInt("RATE_LIMIT_AUTH_BURST", 60),
		AuthSustainedPerDay: getEnvAsInt("RATE_LIMIT_AUTH_SUSTAINED", 1000),
		AnonBurstPerMinute:  getEnvAsInt("RATE_LIMIT_ANON_BURST", 30),
		AnonSustainedPerDay: getEnvAsInt("RATE_LIMIT_ANON_SUSTAINED", 500),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		FlutterwaveSecretKey: getEnv("FLUTTERWAVE_SECRET_KEY", ""),
		FlutterwavePublicKey: getEnv("FLUTTERWAVE_PUBLIC_KEY", ""),
		FlutterwaveBaseURL:   getEnv("FLUTTERWAVE_BASE_URL", "https://api.flutterwave.com/v3"),

		VerifyMeAPIKey:  getEnv("VERIFYME_API_KEY", ""),
		VerifyMeBaseURL: getEnv("VERIFYME_BASE_URL", "https://vapi.verifyme.ng/v1"),

		ATUsername: getEnv("AT_USERNAME", ""),
		ATAPIKey:   getEnv("AT_API_KEY", ""),
		ATSenderID: getEnv("AT_SENDER_ID", "ABIAHUB"),
		ATBaseURL:  getEnv("AT_BASE_URL", "https://api.africastalking.com"),

		PushServerKey: getEnv("PUSH_SERVER_KEY", ""),
		PushEndpoint:  getEnv("PUSH_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "no-reply@abiahub.gov.ng"),
		AdminEmail:   getEnv("ADMIN_EMAIL", "admin@abiahub.gov.ng"),

		RewardBatchSize:     getEnvAsInt("REWARD_BATCH_SIZE", 50),
		RewardBatchDelaySec: getEnvAsInt("REWARD_BATCH_DELAY", 5),
		RewardReportAmount:  getEnvAsFloat("REWARD_REPORT_AMOUNT", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
