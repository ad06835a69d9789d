// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/BurntSushi/toml"
)

const (
	// FileName is the name of the main configuration file inside the config directory.
	FileName = "main.toml"
	// EnvJSONOverride names the environment variable holding a JSON config override.
	EnvJSONOverride = "CONFETTI_CONFIG_JSON"
	// DefaultPath is used when no config directory is given.
	DefaultPath = "./etc/"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             = Default()
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = DefaultPath
	}

	if _, err = toml.DecodeFile(path+FileName, &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvJSONOverride)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the service can not start without
// and fills in defaults for the optional ones.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineSQLite
	case EngineSQLite, EngineMySQL, EnginePostgres:
	default:
		return errors.Wrapf(ErrUnknownGormEngine, "%s: %q", invalidErrMessage, c.DB.GormEngine)
	}

	switch c.Cache.Driver {
	case "":
		c.Cache.Driver = CacheMemory
	case CacheMemory, CacheRedis, CacheMySQL, CachePostgres:
	default:
		return errors.Wrapf(ErrUnknownCacheDriver, "%s: %q", invalidErrMessage, c.Cache.Driver)
	}

	if c.Cache.Driver == CacheRedis && c.Cache.Addr == "" {
		return errors.Wrap(ErrCacheAddrEmpty, invalidErrMessage)
	}

	return validateConfetti(&c.Confetti, invalidErrMessage)
}

func validateConfetti(c *Confetti, invalidErrMessage string) error {
	if c.CachePrefix == "" {
		c.CachePrefix = DefaultCachePrefix
	}

	if c.ResponseMethod == "" {
		c.ResponseMethod = DefaultResponseMethod
	}

	switch c.NonEditablePolicy {
	case "":
		c.NonEditablePolicy = PolicyStoreDefault
	case PolicyStoreDefault, PolicyReject:
	default:
		return errors.Wrapf(ErrUnknownNonEditablePolicy, "%s: %q", invalidErrMessage, c.NonEditablePolicy)
	}

	if c.FrontendCacheTTL < 0 || c.ValueTTL < 0 || c.FlagTTL < 0 {
		return errors.Wrap(ErrNegativeTTL, invalidErrMessage)
	}

	return nil
}
