package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	StoreDriver string
	JWTSecret   string
	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	StockCacheTTL time.Duration

	StripeSecretKey  string
	StripeSuccessURL string
	StripeCancelURL  string
	PaymentCurrency  string

	PaymentLinkURL    string
	PaymentLinkAPIKey string

	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioPhoneNumber    string
	TwilioWhatsAppNumber string

	SaleLineRetries    int
	RecoverySchedule   string
	RecoveryStaleAfter time.Duration
	SlowRequest        time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DB_URL", ""),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		StockCacheTTL: getDuration("STOCK_CACHE_TTL", 10*time.Minute),

		StripeSecretKey:  getEnv("STRIPE_SECRET_KEY", ""),
		StripeSuccessURL: getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/payments/success"),
		StripeCancelURL:  getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/payments/cancel"),
		PaymentCurrency:  getEnv("PAYMENT_CURRENCY", "ILS"),

		PaymentLinkURL:    getEnv("PAYMENT_LINK_URL", ""),
		PaymentLinkAPIKey: getEnv("PAYMENT_LINK_API_KEY", ""),

		TwilioAccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber:    getEnv("TWILIO_PHONE_NUMBER", ""),
		TwilioWhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),

		SaleLineRetries:    getInt("SALE_LINE_RETRIES", 3),
		RecoverySchedule:   getEnv("RECOVERY_SCHEDULE", "@every 1m"),
		RecoveryStaleAfter: getDuration("RECOVERY_STALE_AFTER", 5*time.Minute),
		SlowRequest:        time.Duration(getInt("SLOW_REQUEST_MS", 200)) * time.Millisecond,
	}

	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		log.Println("[WARN] DB_URL is not set")
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[WARN] invalid %s value %q, defaulting to %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[WARN] invalid %s value %q, defaulting to %s", key, v, def)
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
