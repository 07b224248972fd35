package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Sync     SyncConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port        int
	CORSOrigins string
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
	SSLMode  string
	Disabled bool // run on the in-memory repository instead
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret   string
	OperatorPIN string
}

// SyncConfig holds the remote collaborator configuration. An empty
// RemoteURL puts the sync engine in local mode, persisting to the
// repository only.
type SyncConfig struct {
	RemoteURL      string
	Interval       time.Duration
	RequestTimeout time.Duration
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from a .env file (if present) and
// environment variables
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Username: getEnv("DB_USERNAME", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "submanager"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Disabled: getEnvAsBool("DB_DISABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-here"),
			OperatorPIN: getEnv("OPERATOR_PIN", "0000"),
		},
		Sync: SyncConfig{
			RemoteURL:      getEnv("REMOTE_API_URL", ""),
			Interval:       getEnvAsDuration("SYNC_INTERVAL", 15*time.Second),
			RequestTimeout: getEnvAsDuration("SYNC_TIMEOUT", 10*time.Second),
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
