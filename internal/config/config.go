package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	// Storage del user-plane y settings de tenant.
	Storage struct {
		Driver string `yaml:"driver"` // pg (único soportado)
		DSN    string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
		// TTL de settings de tenant en cache.
		TenantTTL string `yaml:"tenant_ttl"`
	} `yaml:"cache"`

	// Proveedor de identidad (Google). Los client credentials por tenant viven
	// en tenant settings; estos son los endpoints y defaults globales.
	Google struct {
		TokenURL    string `yaml:"token_url"`    // default: https://oauth2.googleapis.com/token
		UserInfoURL string `yaml:"userinfo_url"` // default: https://www.googleapis.com/oauth2/v2/userinfo
		Timeout     string `yaml:"timeout"`      // default: 10s

		// VerifyIDToken habilita la verificación de firma del id_token
		// contra el JWKS de Google cuando el token endpoint lo devuelve.
		VerifyIDToken bool `yaml:"verify_id_token"`
	} `yaml:"google"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Connect struct {
		// DefaultLocale para cuentas provisionadas (formato BCP 47).
		DefaultLocale string `yaml:"default_locale"`
		// WelcomeEmail habilita el mail de bienvenida post-creación (no fatal).
		WelcomeEmail bool `yaml:"welcome_email"`

		// RateLimit por tenant sobre intentos de connect. Max 0 = sin límite.
		// Requiere cache.kind=redis.
		RateLimit struct {
			Max    int    `yaml:"max"`
			Window string `yaml:"window"` // default: 1m
		} `yaml:"rate_limit"`
	} `yaml:"connect"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromEnv construye una config usando solo defaults + variables de entorno
// (para CLIs y tests que no cargan YAML).
func FromEnv() *Config {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "pg"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Cache.TenantTTL == "" {
		c.Cache.TenantTTL = "1m"
	}
	if c.Google.TokenURL == "" {
		c.Google.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if c.Google.UserInfoURL == "" {
		c.Google.UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	}
	if c.Google.Timeout == "" {
		c.Google.Timeout = "10s"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Connect.DefaultLocale == "" {
		c.Connect.DefaultLocale = "en_US"
	}
	if c.Connect.RateLimit.Window == "" {
		c.Connect.RateLimit.Window = "1m"
	}
}

func (c *Config) Validate() error {
	if c.Storage.Driver != "pg" {
		return fmt.Errorf("config: unsupported storage driver %q", c.Storage.Driver)
	}
	for _, s := range []string{c.Cache.Memory.DefaultTTL, c.Cache.TenantTTL, c.Google.Timeout, c.Connect.RateLimit.Window} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config: bad duration %q: %w", s, err)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return err
		}
	}
	return nil
}

// GoogleTimeout devuelve el timeout parseado (ya validado en Load).
func (c *Config) GoogleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Google.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// TenantCacheTTL devuelve el TTL de settings de tenant.
func (c *Config) TenantCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TenantTTL)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// RateLimitWindow devuelve la ventana del límite de intentos.
func (c *Config) RateLimitWindow() time.Duration {
	d, err := time.ParseDuration(c.Connect.RateLimit.Window)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("GOOGLE_TOKEN_URL"); ok {
		c.Google.TokenURL = v
	}
	if v, ok := getEnvStr("GOOGLE_USERINFO_URL"); ok {
		c.Google.UserInfoURL = v
	}
	if v, ok := getEnvBool("GOOGLE_VERIFY_ID_TOKEN"); ok {
		c.Google.VerifyIDToken = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvBool("CONNECT_WELCOME_EMAIL"); ok {
		c.Connect.WelcomeEmail = v
	}
}
