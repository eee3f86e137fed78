package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string `mapstructure:"env"`
		Build            string `mapstructure:"build"`
		AppName          string `mapstructure:"app_name"`
		Debug            bool   `mapstructure:"debug"`
		TestMode         bool   `mapstructure:"test_mode"`
		SecretKey        string `mapstructure:"secret_key"`
		DefaultFromEmail string `mapstructure:"default_from_email"`
		FrontendBaseURL  string `mapstructure:"frontend_base_url"`
		RollbarToken     string `mapstructure:"rollbar_token"`

		PasswordResetTimeoutDelta time.Duration `mapstructure:"password_reset_timeout_delta"`

		Server   ServerConfig   `mapstructure:"server"`
		Log      LogConfig      `mapstructure:"log"`
		Database DatabaseConfig `mapstructure:"database"`
		Email    EmailConfig    `mapstructure:"email"`
		Kafka    KafkaConfig    `mapstructure:"kafka"`
		Razorpay RazorpayConfig `mapstructure:"razorpay"`
		Fee      FeeConfig      `mapstructure:"fee"`
	}

	ServerConfig struct {
		Host                      string        `mapstructure:"host"`
		Address                   string        `mapstructure:"address"`
		DebugAddress              string        `mapstructure:"debug_address"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdown_timeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwt_expiration_delta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwt_refresh_expiration_delta"`
		DisableReqLogs            bool          `mapstructure:"disable_req_logs"`
	}

	LogConfig struct {
		File       string `mapstructure:"file"`
		MaxSize    int    `mapstructure:"max_size"` // megabytes
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"` // days
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | memory
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"admin_user"`
		AdminPassword string `mapstructure:"admin_password"`
		DisableTLS    bool   `mapstructure:"disable_tls"`
	}

	EmailConfig struct {
		Backend        string `mapstructure:"backend"` // console | sendgrid | smtp
		SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
		SMTPHost       string `mapstructure:"smtp_host"`
		SMTPPort       int    `mapstructure:"smtp_port"`
		SMTPUser       string `mapstructure:"smtp_user"`
		SMTPPassword   string `mapstructure:"smtp_password"`
	}

	KafkaConfig struct {
		Brokers string `mapstructure:"brokers"` // comma separated; empty disables kafka
		Topic   string `mapstructure:"topic"`
	}

	RazorpayConfig struct {
		KeyID     string `mapstructure:"key_id"`
		KeySecret string `mapstructure:"key_secret"`
	}

	FeeConfig struct {
		Currency      string `mapstructure:"currency"`
		ReceiptPrefix string `mapstructure:"receipt_prefix"`
		Institution   string `mapstructure:"institution"`
	}
)

func (db DatabaseConfig) Address() string {
	return db.Host + ":" + db.Port
}

// KafkaBrokers returns the configured brokers, skipping blanks.
func (conf *Config) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(conf.Kafka.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (conf *Config) DefaultFromAddress() mail.Address {
	addr, err := mail.ParseAddress(conf.DefaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmail}
	}
	return *addr
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "DEV")
	v.SetDefault("build", "dev")
	v.SetDefault("app_name", "Campus ERP")
	v.SetDefault("debug", true)
	v.SetDefault("test_mode", false)
	v.SetDefault("secret_key", "n3=w8u(x!w0c2%4h$z@q)k5y#b+h7e^r_1c!dm0f-p9s&ta6gk")
	v.SetDefault("default_from_email", "Campus ERP <noreply@localhost>")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.debug_address", ":5001")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server.jwt_refresh_expiration_delta", 4*time.Hour)
	v.SetDefault("server.disable_req_logs", false)

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "campus_erp")
	v.SetDefault("database.user", "erp")
	v.SetDefault("database.password", "erp")
	v.SetDefault("database.admin_user", "postgres")
	v.SetDefault("database.admin_password", "postgres")
	v.SetDefault("database.disable_tls", true)

	v.SetDefault("email.backend", "console")
	v.SetDefault("email.sendgrid_api_key", "")
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_user", "")
	v.SetDefault("email.smtp_password", "")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "erp.events")

	v.SetDefault("razorpay.key_id", "")
	v.SetDefault("razorpay.key_secret", "")

	v.SetDefault("fee.currency", "INR")
	v.SetDefault("fee.receipt_prefix", "RCPT-")
	v.SetDefault("fee.institution", "Campus College")
}

// NewConfig loads the app config from defaults, an optional `config/.env.<env>` file and the environment.
// Environment keys are prefixed with ERP_ and nested keys are joined with `_` (ex: ERP_DATABASE_HOST).
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("test_mode", true)
		v.SetDefault("database.engine", "memory")
	case "PROD":
		v.SetDefault("debug", false)
		v.SetDefault("email.backend", "sendgrid")
	}
	v.Set("env", env)

	// load .env if it exists (ignore if it does not)
	if root, err := ProjectRoot(); err == nil {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatal(fmt.Errorf("config.Unmarshal: %w", err))
	}
	return conf
}

// NewTestConfig returns a config suitable for tests: in-memory storage, no outside services.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   "Campus ERP",
		TestMode:                  true,
		SecretKey:                 "secret",
		DefaultFromEmail:          "Campus ERP <noreply@localhost>",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			DisableReqLogs:            true,
		},
		Database: DatabaseConfig{Engine: "memory"},
		Email:    EmailConfig{Backend: "console"},
		Kafka:    KafkaConfig{Topic: "erp.events"},
		Fee:      FeeConfig{Currency: "INR", ReceiptPrefix: "RCPT-", Institution: "Campus College"},
	}
}
