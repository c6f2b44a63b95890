package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Shipping ShippingConfig
	Postal   PostalConfig
	Stripe   StripeConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	AppEnv string
	Port   string
}

func (s ServerConfig) IsProduction() bool {
	env := strings.ToLower(s.AppEnv)
	return env == "production" || env == "prod"
}

type LoggerConfig struct {
	Level string
}

type PostgresConfig struct {
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConnString arma el DSN a partir de las variables sueltas si no vino DB_DSN.
func (p PostgresConfig) ConnString() string {
	if strings.TrimSpace(p.DSN) != "" {
		return p.DSN
	}
	return "host=" + p.Host + " user=" + p.User + " password=" + p.Password + " dbname=" + p.DBName + " port=" + p.Port + " sslmode=" + p.SSLMode
}

type ShippingConfig struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	Timeout       time.Duration
	ShipmentType  string
	DefaultWeight float64
	DefaultLength float64
	DefaultWidth  float64
	DefaultHeight float64
	Origin        OriginAddress
}

type OriginAddress struct {
	Name         string
	Company      string
	Street       string
	Neighborhood string
	City         string
	State        string
	PostalCode   string
	CountryCode  string
	Phone        string
	Email        string
}

type PostalConfig struct {
	BaseURL      string
	CountryOrder []string
	Timeout      time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type AdminConfig struct {
	APIKey string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv: getEnv("APP_ENV", "development"),
			Port:   getEnv("PORT", "8080"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Postgres: PostgresConfig{
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "tienda"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Shipping: ShippingConfig{
			BaseURL:       strings.TrimRight(getEnv("SKYDROPX_BASE_URL", "https://pro.skydropx.com"), "/"),
			ClientID:      getEnv("SKYDROPX_CLIENT_ID", ""),
			ClientSecret:  getEnv("SKYDROPX_CLIENT_SECRET", ""),
			Timeout:       time.Duration(getEnvInt("SKYDROPX_TIMEOUT_SECONDS", 20)) * time.Second,
			ShipmentType:  getEnv("SKYDROPX_SHIPMENT_TYPE", "package"),
			DefaultWeight: getEnvFloat("SHIPPING_DEFAULT_WEIGHT_KG", 0.3),
			DefaultLength: getEnvFloat("SHIPPING_DEFAULT_LENGTH_CM", 30),
			DefaultWidth:  getEnvFloat("SHIPPING_DEFAULT_WIDTH_CM", 25),
			DefaultHeight: getEnvFloat("SHIPPING_DEFAULT_HEIGHT_CM", 10),
			Origin: OriginAddress{
				Name:         getEnv("WAREHOUSE_NAME", "Almacén"),
				Company:      getEnv("WAREHOUSE_COMPANY", ""),
				Street:       getEnv("WAREHOUSE_STREET", ""),
				Neighborhood: getEnv("WAREHOUSE_NEIGHBORHOOD", ""),
				City:         getEnv("WAREHOUSE_CITY", ""),
				State:        getEnv("WAREHOUSE_STATE", ""),
				PostalCode:   getEnv("WAREHOUSE_POSTAL_CODE", ""),
				CountryCode:  strings.ToUpper(getEnv("WAREHOUSE_COUNTRY", "MX")),
				Phone:        getEnv("WAREHOUSE_PHONE", ""),
				Email:        getEnv("WAREHOUSE_EMAIL", ""),
			},
		},
		Postal: PostalConfig{
			BaseURL:      strings.TrimRight(getEnv("POSTAL_BASE_URL", "https://api.zippopotam.us"), "/"),
			CountryOrder: getEnvSlice("POSTAL_COUNTRY_ORDER", []string{"MX", "US"}),
			Timeout:      time.Duration(getEnvInt("POSTAL_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      strings.ToLower(getEnv("STRIPE_CURRENCY", "mxn")),
		},
		Admin: AdminConfig{
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := []string{}
	for _, v := range strings.Split(value, ",") {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
