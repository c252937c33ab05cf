package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database
	Store       Store
	RateLimit   RateLimit

	Razorpay Razorpay `envPrefix:"RAZORPAY_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Resend   Resend   `envPrefix:"RESEND_"`
	WhatsApp WhatsApp `envPrefix:"WHATSAPP_"`
	RabbitMQ RabbitMQ `envPrefix:"RABBITMQ_"`
	Admin    Admin    `envPrefix:"ADMIN_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	Driver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	URL      string `env:"DATABASE_URL" envDefault:"fabro.db"`
	LogLevel string `env:"DB_LOG_LEVEL" envDefault:"warn"`
}

type Store struct {
	OrderNumberPrefix string `env:"ORDER_NUMBER_PREFIX" envDefault:"FABRO"`
	Currency          string `env:"STORE_CURRENCY" envDefault:"INR"`
	BaseURL           string `env:"BASE_URL" envDefault:"http://localhost:8080"`
}

type RateLimit struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	Burst             int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

type Razorpay struct {
	BaseApiURL    string `env:"BASE_API_URL" envDefault:"https://api.razorpay.com"`
	KeyID         string `env:"KEY_ID"`
	KeySecret     string `env:"KEY_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Stripe struct {
	SecretKey string `env:"SECRET_KEY"`
}

type Resend struct {
	BaseApiURL string `env:"BASE_API_URL" envDefault:"https://api.resend.com"`
	APIKey     string `env:"API_KEY"`
	From       string `env:"FROM" envDefault:"orders@fabro.in"`
}

type WhatsApp struct {
	BusinessNumber string `env:"BUSINESS_NUMBER" envDefault:"8852808522"`
}

type RabbitMQ struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"fabro.orders"`
}

type Admin struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	Email     string        `env:"EMAIL"`
	Password  string        `env:"PASSWORD"`
}

const minJWTSecretLen = 32

var supportedDrivers = map[string]bool{
	"sqlite":   true,
	"mysql":    true,
	"postgres": true,
}

// Validate is called once at boot so misconfiguration fails fast instead of on the first request.
func (c *Config) Validate() error {
	var errs []error

	driver := strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if !supportedDrivers[driver] {
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	if strings.TrimSpace(c.Store.OrderNumberPrefix) == "" {
		errs = append(errs, errors.New("ORDER_NUMBER_PREFIX must not be empty"))
	}

	if c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "" {
		errs = append(errs, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required"))
	}

	if len(c.Admin.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("ADMIN_JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}
	if c.Admin.TokenTTL <= 0 {
		errs = append(errs, errors.New("ADMIN_TOKEN_TTL must be positive"))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}

func (h HTTPServer) Address() string {
	return h.Host + ":" + h.Port
}
