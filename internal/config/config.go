package config

import (
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	ContentPath string `yaml:"content_path"` // portfolio document (json)
	BackupDir   string `yaml:"backup_dir"`   // pre-replace document backups
	ResumePath  string `yaml:"resume_path"`
	ProfilePath string `yaml:"profile_path"` // plain-text profile fed to the responder

	AdminTokenTTL       time.Duration `yaml:"admin_token_ttl"`       // short-lived, auto-renewed
	TrapTokenTTL        time.Duration `yaml:"trap_token_ttl"`        // honeypot links
	ReturnTokenTTL      time.Duration `yaml:"return_token_ttl"`      // whitelist return links
	UnsubscribeCooldown time.Duration `yaml:"unsubscribe_cooldown"`  // safe-keeping email rate limit
	RateLimitPerSecond  float64       `yaml:"rate_limit_per_second"` // per-IP token bucket refill
	RateLimitBurst      float64       `yaml:"rate_limit_burst"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Private struct {
	Pg    Pg    `yaml:"pg"`
	Email Email `yaml:"email"`

	JwtSecret   string `yaml:"jwt_secret"`   // unsubscribe/whitelist links
	AdminSecret string `yaml:"admin_secret"` // dashboard tokens
	TrapSecret  string `yaml:"trap_secret"`  // honeypot tokens

	// bcrypt hash of the static secret guarding bulk content replacement
	AdminPasswordHash string `yaml:"admin_password_hash"`

	AdminEmail  string   `yaml:"admin_email"`  // summary/notification recipient
	AdminEmails []string `yaml:"admin_emails"` // honeypot alert recipients

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Email struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SenderName string `yaml:"sender_name"`
	Timeout    int    `yaml:"timeout"` // seconds
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{public, private}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Public.Port == 0 {
		c.Public.Port = 4000
	}
	if c.Public.AdminTokenTTL == 0 {
		c.Public.AdminTokenTTL = 15 * time.Minute
	}
	if c.Public.TrapTokenTTL == 0 {
		c.Public.TrapTokenTTL = time.Hour
	}
	if c.Public.ReturnTokenTTL == 0 {
		c.Public.ReturnTokenTTL = 36500 * 24 * time.Hour // effectively eternal
	}
	if c.Public.UnsubscribeCooldown == 0 {
		c.Public.UnsubscribeCooldown = 24 * time.Hour
	}
	if c.Public.RateLimitPerSecond == 0 {
		c.Public.RateLimitPerSecond = 100.0 / 60
	}
	if c.Public.RateLimitBurst == 0 {
		c.Public.RateLimitBurst = 20
	}
	if c.Private.GeminiModel == "" {
		c.Private.GeminiModel = "gemini-2.5-flash-lite"
	}
}
