package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvServiceAccount    = "GEE_SERVICE_ACCOUNT"
	EnvCredentialPath    = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvCredentialJSON    = "GEE_JSON"
	EnvProject           = "CLOUDSDK_CORE_PROJECT"
	EnvStagingBucket     = "GEE_STAGING_BUCKET"
	EnvStrict            = "EEUTIL_STRICT"
	EnvPollInterval      = "EEUTIL_POLL_INTERVAL"
	EnvHome              = "EEUTIL_HOME"
	EnvDbConnection      = "EEUTIL_DB"
	EnvPsProject         = "EEUTIL_PS_PROJECT"
	EnvPsTopic           = "EEUTIL_PS_TOPIC"
	EnvWorkDir           = "EEUTIL_WORKDIR"
	EnvUploadConcurrency = "EEUTIL_UPLOAD_CONCURRENCY"
	EnvS3Endpoint        = "EEUTIL_S3_ENDPOINT"
	EnvS3Region          = "AWS_REGION"
	EnvLogLevel          = "LOG_LEVEL"
)

// DefaultPollInterval between two polls of the status of a task
const DefaultPollInterval = 5 * time.Second

// Config of a session
type Config struct {
	// ServiceAccount is informational: the identity is carried by the credentials
	ServiceAccount string
	// CredentialPath is the path to a service-account key file
	CredentialPath string
	// CredentialJSON is the content of a service-account key (has priority over CredentialPath)
	CredentialJSON string
	// Project of the catalog service and the staging bucket
	Project string
	// StagingURI is gs://bucket, s3://bucket, file:///dir or a bare GCS bucket name.
	// If empty, a default bucket is derived from the home directory.
	StagingURI        string
	Strict            bool
	PollInterval      time.Duration
	Home              string
	DbConnection      string
	PsProject         string
	PsTopic           string
	WorkDir           string
	UploadConcurrency int
	S3Endpoint        string
	S3Region          string
	LogLevel          string
}

// Load reads the env files (.env if none, missing files are ignored) and then the environment.
// Variables already defined in the environment are not overridden by the files.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("config.Load[%s]: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv reads the configuration from the environment
func FromEnv() (Config, error) {
	cfg := Config{
		ServiceAccount:    os.Getenv(EnvServiceAccount),
		CredentialPath:    os.Getenv(EnvCredentialPath),
		CredentialJSON:    os.Getenv(EnvCredentialJSON),
		Project:           os.Getenv(EnvProject),
		StagingURI:        os.Getenv(EnvStagingBucket),
		PollInterval:      DefaultPollInterval,
		Home:              os.Getenv(EnvHome),
		DbConnection:      os.Getenv(EnvDbConnection),
		PsProject:         os.Getenv(EnvPsProject),
		PsTopic:           os.Getenv(EnvPsTopic),
		WorkDir:           os.Getenv(EnvWorkDir),
		UploadConcurrency: 1,
		S3Endpoint:        os.Getenv(EnvS3Endpoint),
		S3Region:          os.Getenv(EnvS3Region),
		LogLevel:          os.Getenv(EnvLogLevel),
	}
	var err error
	if v := os.Getenv(EnvStrict); v != "" {
		if cfg.Strict, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", EnvStrict, err)
		}
	}
	if v := os.Getenv(EnvPollInterval); v != "" {
		if cfg.PollInterval, err = ParseDuration(v); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", EnvPollInterval, err)
		}
	}
	if v := os.Getenv(EnvUploadConcurrency); v != "" {
		if cfg.UploadConcurrency, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", EnvUploadConcurrency, err)
		}
	}
	if cfg.PsProject == "" {
		cfg.PsProject = cfg.Project
	}
	return cfg, nil
}

// ParseDuration parses a duration ("1m30s") or a number of seconds ("90")
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
