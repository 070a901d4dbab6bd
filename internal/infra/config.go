package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации сервиса заявок.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Mail   MailConfig   `mapstructure:"mail"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Logger LoggerConfig `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
)

// StoreConfig описывает документное хранилище заявок.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"` // mongo | postgres
	URI             string        `mapstructure:"uri"`
	Database        string        `mapstructure:"database"`
	Collection      string        `mapstructure:"collection"` // Для postgres — имя таблицы
	Timeout         time.Duration `mapstructure:"timeout"`    // Предел на каждый вызов хранилища
	ConnectAttempts uint          `mapstructure:"connect_attempts"`
}

// MailConfig описывает SMTP-транспорт уведомлений.
type MailConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	UseTLS   bool          `mapstructure:"use_tls"`
	UseSSL   bool          `mapstructure:"use_ssl"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Sender   string        `mapstructure:"sender"` // По умолчанию совпадает с Username
	Timeout  time.Duration `mapstructure:"timeout"`

	// Ограничение потока писем и предохранитель (без повторов)
	RateLimit     float64       `mapstructure:"rate_limit"`
	Burst         int           `mapstructure:"burst"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`
}

// Enabled сообщает, хватает ли данных для реальной отправки через SMTP.
func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// RedisConfig описывает подключение к Redis для публикации событий. Пустой Addr отключает события.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Исторические имена переменных окружения, которые продолжают работать.
var legacyEnv = map[string][]string{
	"store.uri":     {"STORE_URI", "MONGO_URI"},
	"mail.host":     {"MAIL_HOST", "MAIL_SERVER"},
	"mail.port":     {"MAIL_PORT"},
	"mail.use_tls":  {"MAIL_USE_TLS"},
	"mail.use_ssl":  {"MAIL_USE_SSL"},
	"mail.username": {"MAIL_USERNAME", "EMAIL_USER"},
	"mail.password": {"MAIL_PASSWORD", "EMAIL_PASS"},
}

// LoadConfig инициализирует конфигурацию, объединяя .env, файл и ENV.
func LoadConfig() (*Config, error) {
	// .env необязателен: в контейнере переменные приходят напрямую
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, envs := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if cfg.Mail.Sender == "" {
		cfg.Mail.Sender = cfg.Mail.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры перед стартом.
func (c *Config) Validate() error {
	if c.Store.URI == "" {
		return errors.New("store.uri (MONGO_URI) is required")
	}
	switch c.Store.Driver {
	case StoreDriverMongo, StoreDriverPostgres:
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	if c.Mail.UseTLS && c.Mail.UseSSL {
		return errors.New("mail.use_tls and mail.use_ssl are mutually exclusive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("store.driver", StoreDriverMongo)
	v.SetDefault("store.uri", "")
	v.SetDefault("store.database", "request_handler")
	v.SetDefault("store.collection", "requests")
	v.SetDefault("store.timeout", 5*time.Second)
	v.SetDefault("store.connect_attempts", 5)

	v.SetDefault("mail.host", "smtp.googlemail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.use_tls", true)
	v.SetDefault("mail.use_ssl", false)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.sender", "")
	v.SetDefault("mail.timeout", 10*time.Second)
	v.SetDefault("mail.rate_limit", 5.0)
	v.SetDefault("mail.burst", 5)
	v.SetDefault("mail.cb_max_requests", 1)
	v.SetDefault("mail.cb_interval", time.Minute)
	v.SetDefault("mail.cb_timeout", 30*time.Second)
	v.SetDefault("mail.cb_failures", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
