// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"development"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Robokassa               `yaml:"robokassa"`
	XrayPanel               `yaml:"xray_panel"`
	Sweep                   `yaml:"sweep"`
	Limits                  `yaml:"limits"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к брокеру уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// Robokassa настройки платёжного провайдера.
// PasswordPay (Пароль #1) подписывает исходящую ссылку,
// PasswordCheck (Пароль #2) проверяет входящий ResultURL.
type Robokassa struct {
	PaymentURL    string `yaml:"payment_url" env-default:"https://auth.robokassa.ru/Merchant/Index.aspx"`
	MerchantLogin string `yaml:"merchant_login"`
	PasswordPay   string `yaml:"password_pay" env:"ROBO_PASSWORD_PAY"`
	PasswordCheck string `yaml:"password_check" env:"ROBO_PASSWORD_CHECK"`
	Culture       string `yaml:"culture" env-default:"ru"`
}

// XrayPanel настройки панели управления xray (access-control plane)
type XrayPanel struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key" env:"XRAY_PANEL_API_KEY"`
	InboundTag  string        `yaml:"inbound_tag" env-default:"vless-in"`
	PanelTimeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// Sweep настройки периодической проверки истёкших подписок
type Sweep struct {
	Interval  time.Duration `yaml:"interval" env-default:"1m"`
	BatchSize int           `yaml:"batch_size" env-default:"100"`
}

// Limits ограничения на пользователя, читает бот
type Limits struct {
	DevicesLimit int `yaml:"devices_limit" env-default:"3"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// IsProduction сообщает, работает ли сервис в боевом режиме.
// От режима зависит формат суммы в подписи и флаг IsTest в ссылке.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
