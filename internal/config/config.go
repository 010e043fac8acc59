package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Mailer                    MailerConfig
	PayMongo                  PayMongoConfig
	PayPal                    PayPalConfig
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	AppURL                    string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds the connection details for the tab-session store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MailerConfig holds SendGrid configuration
type MailerConfig struct {
	APIKey      string
	DefaultFrom string
	FromName    string
}

// PayMongoConfig holds PayMongo (GCash) API credentials
type PayMongoConfig struct {
	SecretKey     string
	WebhookSecret string
}

// PayPalConfig holds PayPal REST API credentials
type PayPalConfig struct {
	ClientID string
	Secret   string
	BaseURL  string // empty for live, sandbox host otherwise
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clinic"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisConfig := RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	mailerConfig := MailerConfig{
		APIKey:      getEnv("SENDGRID_API_KEY", ""),
		DefaultFrom: getEnv("MAILER_DEFAULT_FROM", "noreply@clinic.local"),
		FromName:    getEnv("MAILER_FROM_NAME", "Clinic Booking"),
	}

	payMongoConfig := PayMongoConfig{
		SecretKey:     getEnv("PAYMONGO_SECRET_KEY", ""),
		WebhookSecret: getEnv("PAYMONGO_WEBHOOK_SECRET", ""),
	}

	payPalConfig := PayPalConfig{
		ClientID: getEnv("PAYPAL_CLIENT_ID", ""),
		Secret:   getEnv("PAYPAL_SECRET", ""),
		BaseURL:  getEnv("PAYPAL_BASE_URL", ""),
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:5173"),
		Environment:               getEnv("APP_ENV", "development"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:                  dbConfig,
		Redis:                     redisConfig,
		Mailer:                    mailerConfig,
		PayMongo:                  payMongoConfig,
		PayPal:                    payPalConfig,
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		AppURL:                    getEnv("APP_URL", "http://localhost:3001"),
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
