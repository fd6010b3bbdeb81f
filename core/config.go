package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		RollbarToken     string
		DefaultFromEmail string
		SendgridAPIKey   string

		Server   ServerConfig
		Database DatabaseConfig
		Cache    CacheConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
		CORSOrigins     []string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool
	}

	CacheConfig struct {
		RedisURL string
		Size     int
		TTL      time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration of the current ENV from defaults, `config/.env.<env>` and the environment.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Academia")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "k2$e9x!8ha^d-+3lq@7w(v0&zr%c1mbp*ny5#uto4)fsj6gi")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugAddress", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverCorsOrigins", []string{"http://localhost:3000", "http://localhost:3001"})

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "academia")
	v.SetDefault("dbUser", "academia")
	v.SetDefault("dbPassword", "academia")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTls", true)
	v.SetDefault("dbInMemory", false)

	v.SetDefault("cacheRedisUrl", "")
	v.SetDefault("cacheSize", 512)
	v.SetDefault("cacheTtl", 5*time.Minute)

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Address:         v.GetString("serverAddress"),
			DebugAddress:    v.GetString("serverDebugAddress"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
			CORSOrigins:     v.GetStringSlice("serverCorsOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTls"),
			InMemory:      v.GetBool("dbInMemory"),
		},
		Cache: CacheConfig{
			RedisURL: v.GetString("cacheRedisUrl"),
			Size:     v.GetInt("cacheSize"),
			TTL:      v.GetDuration("cacheTtl"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no I/O, in-memory storage.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Academia",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		DefaultFromEmail: "noreply@localhost",
		Server: ServerConfig{
			Host:            "localhost",
			ShutdownTimeout: time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{InMemory: true},
		Cache:    CacheConfig{Size: 64, TTL: time.Minute},
	}
}

// FromAddress formats DefaultFromEmail with the app name.
func (c *Config) FromAddress() string {
	return fmt.Sprintf("%s <%s>", c.AppName, c.DefaultFromEmail)
}
