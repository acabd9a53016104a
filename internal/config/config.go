package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr     string
	RedisPassword string

	AppPort   string
	AppEnv    string
	JWTSecret string

	// Bank redirect gateway credentials and endpoints.
	GatewayBaseURL      string
	GatewayMerchantCode string
	GatewayHashSecret   string
	GatewayReturnURL    string

	// Client-facing pages the callback handler redirects to.
	PaymentSuccessURL string
	PaymentFailureURL string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		AppPort:   os.Getenv("APP_PORT"),
		AppEnv:    os.Getenv("APP_ENV"),
		JWTSecret: os.Getenv("SECRET_KEY"),

		GatewayBaseURL:      os.Getenv("GATEWAY_BASE_URL"),
		GatewayMerchantCode: os.Getenv("GATEWAY_MERCHANT_CODE"),
		GatewayHashSecret:   os.Getenv("GATEWAY_HASH_SECRET"),
		GatewayReturnURL:    os.Getenv("GATEWAY_RETURN_URL"),

		PaymentSuccessURL: os.Getenv("PAYMENT_SUCCESS_URL"),
		PaymentFailureURL: os.Getenv("PAYMENT_FAILURE_URL"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}
