package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppConfig is the top-level application configuration, loaded from a yaml
// file with environment variable overrides for deployment secrets.
type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Database DBConfig      `yaml:"database"`
	Redis    RedisConfig   `yaml:"redis"`
	Storage  StorageConfig `yaml:"storage"`
	Mail     MailConfig    `yaml:"mail"`
	Webhook  WebhookConfig `yaml:"webhook"`
	Admin    AdminConfig   `yaml:"admin"`
	Logger   LogConfig     `yaml:"logger"`
}

type SysConfig struct {
	Appid    string `yaml:"appid"`
	Workdir  string `yaml:"workdir"`
	Location string `yaml:"location"`
	Debug    bool   `yaml:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PublicURL is the externally visible base URL used when building
	// links in emails and upload responses.
	PublicURL string `yaml:"public_url"`
}

type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Passwd  string `yaml:"passwd"`
	DB      int    `yaml:"db"`
}

type StorageConfig struct {
	// Type selects the object store backend: fs or nats.
	Type    string `yaml:"type"`
	Dir     string `yaml:"dir"`
	NatsURL string `yaml:"nats_url"`
	Bucket  string `yaml:"bucket"`
}

type MailConfig struct {
	SMTPHost   string `yaml:"smtp_host"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	OwnerEmail string `yaml:"owner_email"`
}

// Enabled reports whether outbound mail is configured. Unconfigured mail is
// not an error: orders go through without notifications.
func (m MailConfig) Enabled() bool {
	return m.SMTPHost != "" && m.Username != "" && m.Password != ""
}

type WebhookConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"`
	Retries int    `yaml:"retries"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "urbanthreads",
		Workdir:  "/var/urbanthreads",
		Location: "Africa/Lagos",
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		PublicURL: "http://localhost:1816",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "urbanthreads",
		User:     "postgres",
		MaxConn:  100,
		IdleConn: 10,
	},
	Redis: RedisConfig{
		Addr: "127.0.0.1:6379",
	},
	Storage: StorageConfig{
		Type:   "fs",
		Bucket: "urbanthreads-files",
	},
	Webhook: WebhookConfig{
		Timeout: 10,
		Retries: 3,
	},
	Admin: AdminConfig{
		Email:    "admin@urbanthreads.local",
		Password: "urbanthreads",
	},
	Logger: LogConfig{
		Mode: "development",
	},
}

func setEnvValue(name string, f func(v string)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v)
	}
}

func setEnvIntValue(name string, f func(v int)) {
	setEnvValue(name, func(v string) {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			f(i)
		}
	})
}

// LoadConfig reads the yaml configuration file and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			cfg = new(AppConfig)
			*cfg = *DefaultAppConfig
			if err := yaml.Unmarshal(data, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "config file %s parse error: %v\n", cfile, err)
				os.Exit(1)
			}
		}
	}

	setEnvValue("UT_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("UT_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvIntValue("UT_WEB_PORT", func(v int) { cfg.Web.Port = v })
	setEnvValue("UT_WEB_PUBLIC_URL", func(v string) { cfg.Web.PublicURL = v })
	setEnvValue("UT_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("UT_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvIntValue("UT_DB_PORT", func(v int) { cfg.Database.Port = v })
	setEnvValue("UT_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("UT_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("UT_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("UT_REDIS_ADDR", func(v string) { cfg.Redis.Addr = v })
	setEnvValue("UT_REDIS_PWD", func(v string) { cfg.Redis.Passwd = v })
	setEnvValue("UT_MAIL_SMTP_HOST", func(v string) { cfg.Mail.SMTPHost = v })
	setEnvIntValue("UT_MAIL_SMTP_PORT", func(v int) { cfg.Mail.SMTPPort = v })
	setEnvValue("UT_MAIL_USER", func(v string) { cfg.Mail.Username = v })
	setEnvValue("UT_MAIL_PWD", func(v string) { cfg.Mail.Password = v })
	setEnvValue("UT_MAIL_OWNER", func(v string) { cfg.Mail.OwnerEmail = v })
	setEnvValue("UT_ADMIN_EMAIL", func(v string) { cfg.Admin.Email = v })
	setEnvValue("UT_ADMIN_PWD", func(v string) { cfg.Admin.Password = v })

	_ = os.MkdirAll(cfg.System.Workdir, 0755)
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepath.Join(cfg.System.Workdir, "objects")
	}
	if cfg.Logger.Filename == "" {
		cfg.Logger.Filename = filepath.Join(cfg.System.Workdir, "urbanthreads.log")
	}
	return cfg
}
