package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func (c *Config) GetPort() string {
	port := c.config.GetString("PORT")
	if len(port) == 0 {
		port = c.config.GetString("server.port")
	}
	if len(port) == 0 {
		port = "8080"
	}

	return port
}

func (c *Config) GetKVDBPath() string {
	kvdbPath := c.config.GetString("KVDB_PATH")
	if len(kvdbPath) == 0 {
		kvdbPath = c.config.GetString("database.kvdb_path")
	}
	if len(kvdbPath) == 0 {
		kvdbPath = filepath.Join(".trustwork", "savedsearches.db")
	}

	return kvdbPath
}

// GetDatabaseURL returns the Postgres connection string for the marketplace
// data layer. When empty, the service falls back to the in-memory store.
func (c *Config) GetDatabaseURL() string {
	databaseURL := c.config.GetString("DATABASE_URL")
	if len(databaseURL) == 0 {
		databaseURL = c.config.GetString("database.url")
	}

	return databaseURL
}

// GetRedisURL returns the Redis connection string used for cross-replica
// rate limiting. When empty, rate limiting stays process-local.
func (c *Config) GetRedisURL() string {
	redisURL := c.config.GetString("REDIS_URL")
	if len(redisURL) == 0 {
		redisURL = c.config.GetString("database.redis_url")
	}

	return redisURL
}

func (c *Config) GetAlertTick() time.Duration {
	tick := c.config.GetDuration("ALERT_TICK")
	if tick == 0 {
		tick = c.config.GetDuration("alerts.tick")
	}
	if tick == 0 {
		tick = time.Minute
	}

	return tick
}

func (c *Config) GetAlertConcurrency() int {
	concurrency := c.config.GetInt("ALERT_CONCURRENCY")
	if concurrency == 0 {
		concurrency = c.config.GetInt("alerts.concurrency")
	}
	if concurrency == 0 {
		concurrency = 4
	}

	return concurrency
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
