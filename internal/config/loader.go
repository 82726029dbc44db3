package config

import (
	"fmt"
	"time"

	"github.com/openpim/importer/internal/db"

	"github.com/spf13/viper"
)

// ImportConfig carries the import pipeline settings.
type ImportConfig struct {
	ChunkSize             int
	RelaxFamilyValidation bool
	UploadDir             string
	ReportDir             string
	JobTimeout            time.Duration
}

// ServerConfig carries the HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// Config is the full application configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Import   ImportConfig
}

// Load reads config.yaml from configPath with environment overrides
// (APP_DATABASE_HOST, APP_IMPORT_CHUNK_SIZE, ...).
func Load(configPath string) (Config, error) {
	cfg := Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Import: ImportConfig{
			ChunkSize:  1000,
			UploadDir:  "./data/uploads",
			ReportDir:  "./data/reports",
			JobTimeout: 60 * time.Minute,
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("import.chunk_size")
	v.BindEnv("import.relax_family_validation", "IMPORT_RELAX_TEMPLATE")
	v.BindEnv("import.upload_dir")
	v.BindEnv("import.report_dir")
	v.BindEnv("import.job_timeout")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("import.chunk_size") {
		cfg.Import.ChunkSize = v.GetInt("import.chunk_size")
	}
	if v.IsSet("import.relax_family_validation") {
		cfg.Import.RelaxFamilyValidation = v.GetBool("import.relax_family_validation")
	}
	if v.IsSet("import.upload_dir") {
		cfg.Import.UploadDir = v.GetString("import.upload_dir")
	}
	if v.IsSet("import.report_dir") {
		cfg.Import.ReportDir = v.GetString("import.report_dir")
	}
	if v.IsSet("import.job_timeout") {
		cfg.Import.JobTimeout = v.GetDuration("import.job_timeout")
	}

	return cfg, nil
}
