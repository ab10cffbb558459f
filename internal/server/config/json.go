package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/keywarden/keywarden/internal/flagx"
	"github.com/keywarden/keywarden/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr      string         `json:"endpoint_addr"`
	DatabaseDSN       string         `json:"database_dsn"`
	SaltLength        int            `json:"salt_length"`
	DefaultIterations int            `json:"default_iterations"`
	ParamsRateLimit   int            `json:"params_rate_limit"`
	ParamsRateWindow  timex.Duration `json:"params_rate_window"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SaltLength = c.SaltLength
	config.DefaultIterations = c.DefaultIterations
	config.ParamsRateLimit = c.ParamsRateLimit
	config.ParamsRateWindow = time.Duration(c.ParamsRateWindow.Duration)
}
