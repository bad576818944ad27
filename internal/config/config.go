package config

import (
	"encoding/json"
	"os"
	"strconv"

	"blogmsg/internal/constants"
	"blogmsg/internal/models"
)

var (
	ErrMissingAPIURL  = models.ConfigError{Message: "missing messaging API base URL"}
	ErrMissingUserID  = models.ConfigError{Message: "missing current user id"}
	ErrMissingDBPath  = models.ConfigError{Message: "missing database path"}
	ErrMissingUploads = models.ConfigError{Message: "missing upload directory"}
)

// LoadConfig reads the JSON config file, applies defaults and environment
// overrides. Section validation is left to ValidateClient/ValidateServer so a
// serve-only config does not need API credentials and vice versa.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	return &config, nil
}

// ValidateClient checks the fields required to talk to the messaging API.
func ValidateClient(c *models.Config) error {
	if c.API.BaseURL == "" {
		return ErrMissingAPIURL
	}
	if c.API.UserID == "" {
		return ErrMissingUserID
	}
	return nil
}

// ValidateServer checks the fields required to run the dev server.
func ValidateServer(c *models.Config) error {
	if c.Server.DBPath == "" {
		return ErrMissingDBPath
	}
	if c.Server.UploadDir == "" {
		return ErrMissingUploads
	}
	return nil
}

func applyDefaults(c *models.Config) {
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.Client.PageSize <= 0 {
		c.Client.PageSize = constants.DefaultPageSize
	}
	if c.Client.UnreadPollIntervalSec <= 0 {
		c.Client.UnreadPollIntervalSec = constants.DefaultUnreadPollIntervalSec
	}
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if v := os.Getenv("BLOGMSG_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("BLOGMSG_AUTH_TOKEN"); v != "" {
		c.API.AuthToken = v
	}
	if v := os.Getenv("BLOGMSG_USER_ID"); v != "" {
		c.API.UserID = v
	}
	if v := os.Getenv("BLOGMSG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BLOGMSG_DB_PATH"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("BLOGMSG_UPLOAD_DIR"); v != "" {
		c.Server.UploadDir = v
	}
	if v := os.Getenv("BLOGMSG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}
