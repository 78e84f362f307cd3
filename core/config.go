package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (local; default), TEST, QA, PROD
		AppName  string

		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		HeartbeatInterval         time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func init() {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Tomato")
	conf.SetDefault("secretKey", "x#2b8&0n$!yfr)a+qz(c5m^e7_ju4hw3gd%vk6s9t1lio0pq")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.addr", ":8000")
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("server.heartbeatInterval", 30*time.Second)
	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "tomato")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.user", "tomato")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)

	env := os.Getenv("ENV")
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	Conf = &Config{
		Debug:        conf.GetBool("debug"),
		TestMode:     testMode,
		Env:          env,
		AppName:      conf.GetString("appName"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Addr:                      conf.GetString("server.addr"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			HeartbeatInterval:         conf.GetDuration("server.heartbeatInterval"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
	}
}
