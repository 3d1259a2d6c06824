package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database engines
const (
	EngineMongo    = "mongodb"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// Storage drivers
const (
	StorageLocal      = "local"
	StorageCloudinary = "cloudinary"
)

type (
	Config struct {
		AppName      string
		Build        string
		Env          string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Auth         AuthConfig
		Database     DatabaseConfig
		Mongo        MongoConfig
		Storage      StorageConfig
		Log          LogConfig
		Sequence     SequenceConfig
		Reports      ReportsConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		AllowOrigins    []string
		BodyLimit       string
	}

	AuthConfig struct {
		RefreshSecretKey          string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		SecureCookies             bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	MongoConfig struct {
		URI            string
		Database       string
		MaxPoolSize    uint64
		MinPoolSize    uint64
		ConnectTimeout time.Duration
		SocketTimeout  time.Duration
	}

	StorageConfig struct {
		Driver              string
		LocalDir            string
		PublicURL           string
		CloudinaryCloudName string
		CloudinaryAPIKey    string
		CloudinaryAPISecret string
	}

	LogConfig struct {
		Level      string
		Format     string // text | json
		Output     string // stdout | file | both
		Dir        string
		MaxSize    int // MB
		MaxBackups int
		MaxAge     int // days
		Compress   bool
	}

	SequenceConfig struct {
		Strategy string // counter | scan
	}

	ReportsConfig struct {
		Timezone    string
		StrictDates bool
		DraftTTL    time.Duration
	}
)

// Address returns the "host:port" of the SQL database.
func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}

// LoadLocation resolves the timezone used to evaluate report deadlines and year scopes.
// An empty Timezone is UTC.
func (rc ReportsConfig) LoadLocation() (*time.Location, error) {
	if rc.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(rc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown reports timezone %q: %w", rc.Timezone, err)
	}
	return loc, nil
}

// Location returns the reports timezone. NewConfig refuses invalid timezones,
// so the UTC fallback only applies to configs built by hand.
func (rc ReportsConfig) Location() *time.Location {
	loc, err := rc.LoadLocation()
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewConfig loads the configuration from the environment, prefixed by the current ENV.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "ReportDesk")
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", true)
	conf.SetDefault("secretKey", "rd4-x!o2e$k7(q+9mn=w%zfa6l^u3)t8c#jb0h&gpys1v5r")
	conf.SetDefault("refreshSecretKey", "rd4-refresh-8h$x2k=p0(qz!m6w^a3t)e7c#u9j1v5b&n")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("jwtExpirationDelta", 24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 10*24*time.Hour)
	conf.SetDefault("secureCookies", false)

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("debugHost", ":4000")
	conf.SetDefault("readTimeout", 10*time.Second)
	conf.SetDefault("writeTimeout", 30*time.Second)
	conf.SetDefault("shutdownTimeout", 10*time.Second)
	conf.SetDefault("allowOrigins", []string{"http://localhost:3000"})
	conf.SetDefault("bodyLimit", "16M")

	conf.SetDefault("dbEngine", EngineMongo)
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbName", "reportdesk")
	conf.SetDefault("dbUser", "reportdesk")
	conf.SetDefault("dbPassword", "reportdesk")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("mongoURI", "mongodb://localhost:27017")
	conf.SetDefault("mongoDatabase", "reportdesk")
	conf.SetDefault("mongoMaxPoolSize", uint64(50))
	conf.SetDefault("mongoMinPoolSize", uint64(5))
	conf.SetDefault("mongoConnectTimeout", 5*time.Second)
	conf.SetDefault("mongoSocketTimeout", 10*time.Second)

	conf.SetDefault("storageDriver", StorageLocal)
	conf.SetDefault("storageLocalDir", "uploads")
	conf.SetDefault("storagePublicURL", "http://localhost:8000/uploads")
	conf.SetDefault("cloudinaryCloudName", "")
	conf.SetDefault("cloudinaryAPIKey", "")
	conf.SetDefault("cloudinaryAPISecret", "")

	conf.SetDefault("logLevel", "info")
	conf.SetDefault("logFormat", "text")
	conf.SetDefault("logOutput", "stdout")
	conf.SetDefault("logDir", "logs")
	conf.SetDefault("logMaxSize", 50)
	conf.SetDefault("logMaxBackups", 5)
	conf.SetDefault("logMaxAge", 30)
	conf.SetDefault("logCompress", true)

	conf.SetDefault("sequenceStrategy", "counter")

	conf.SetDefault("reportsTimezone", "UTC")
	conf.SetDefault("reportsStrictDates", false)
	conf.SetDefault("draftTTL", 7*24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

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

	cfg := &Config{
		AppName:      conf.GetString("appName"),
		Build:        conf.GetString("build"),
		Env:          env,
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            conf.GetString("serverHost"),
			Address:         conf.GetString("serverAddress"),
			DebugHost:       conf.GetString("debugHost"),
			ReadTimeout:     conf.GetDuration("readTimeout"),
			WriteTimeout:    conf.GetDuration("writeTimeout"),
			ShutdownTimeout: conf.GetDuration("shutdownTimeout"),
			AllowOrigins:    conf.GetStringSlice("allowOrigins"),
			BodyLimit:       conf.GetString("bodyLimit"),
		},
		Auth: AuthConfig{
			RefreshSecretKey:          conf.GetString("refreshSecretKey"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
			SecureCookies:             conf.GetBool("secureCookies"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetInt("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Mongo: MongoConfig{
			URI:            conf.GetString("mongoURI"),
			Database:       conf.GetString("mongoDatabase"),
			MaxPoolSize:    conf.GetUint64("mongoMaxPoolSize"),
			MinPoolSize:    conf.GetUint64("mongoMinPoolSize"),
			ConnectTimeout: conf.GetDuration("mongoConnectTimeout"),
			SocketTimeout:  conf.GetDuration("mongoSocketTimeout"),
		},
		Storage: StorageConfig{
			Driver:              conf.GetString("storageDriver"),
			LocalDir:            conf.GetString("storageLocalDir"),
			PublicURL:           conf.GetString("storagePublicURL"),
			CloudinaryCloudName: conf.GetString("cloudinaryCloudName"),
			CloudinaryAPIKey:    conf.GetString("cloudinaryAPIKey"),
			CloudinaryAPISecret: conf.GetString("cloudinaryAPISecret"),
		},
		Log: LogConfig{
			Level:      conf.GetString("logLevel"),
			Format:     conf.GetString("logFormat"),
			Output:     conf.GetString("logOutput"),
			Dir:        conf.GetString("logDir"),
			MaxSize:    conf.GetInt("logMaxSize"),
			MaxBackups: conf.GetInt("logMaxBackups"),
			MaxAge:     conf.GetInt("logMaxAge"),
			Compress:   conf.GetBool("logCompress"),
		},
		Sequence: SequenceConfig{
			Strategy: conf.GetString("sequenceStrategy"),
		},
		Reports: ReportsConfig{
			Timezone:    conf.GetString("reportsTimezone"),
			StrictDates: conf.GetBool("reportsStrictDates"),
			DraftTTL:    conf.GetDuration("draftTTL"),
		},
	}
	if _, err := cfg.Reports.LoadLocation(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}
