// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/metatracer/database/plugin"
)

type ctxKey string

const configContextKey ctxKey = "metatracer.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
	envPrefix              = "metatracer"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	MetadataPlugin  string `yaml:"metadataPlugin"  envconfig:"DATABASE_METADATA_PLUGIN"`
	BlobPlugin      string `yaml:"blobPlugin"      envconfig:"DATABASE_BLOB_PLUGIN"`
	DatabasePath    string `yaml:"databasePath"                                     split_words:"true"`
	BindAddr        string `yaml:"bindAddr"                                         split_words:"true"`
	PublicBaseURL   string `yaml:"publicBaseUrl"   envconfig:"PUBLIC_BASE_URL"`
	PrivateKey      string `yaml:"privateKey"      envconfig:"PRIVATE_KEY"`
	ShutdownTimeout string `yaml:"shutdownTimeout"                                  split_words:"true"`
	ApiPort         uint   `yaml:"apiPort"                                          split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"                                      split_words:"true"`
	Tracing         bool   `yaml:"tracing"`
	TracingStdout   bool   `yaml:"tracingStdout"                                    split_words:"true"`
}

// ApiAddress returns the listen address of the JSON API
func (c *Config) ApiAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.ApiPort)
}

// MetricsAddress returns the listen address of the metrics endpoint
func (c *Config) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.MetricsPort)
}

// ParseShutdownTimeout returns the configured shutdown timeout
func (c *Config) ParseShutdownTimeout() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return time.ParseDuration(DefaultShutdownTimeout)
	}
	timeout, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return timeout, nil
}

// ParsePrivateKey decodes the hex private key of the node account. It
// returns nil when no key is configured.
func (c *Config) ParsePrivateKey() (*ecdsa.PrivateKey, error) {
	if c.PrivateKey == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func defaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		DatabasePath:    ".metatracer",
		ApiPort:         8000,
		MetricsPort:     12799,
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

var globalConfig = defaultConfig()

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.metatracer/metatracer.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".metatracer", "metatracer.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/metatracer/metatracer.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/metatracer/metatracer.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	err := envconfig.Process(envPrefix, globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if _, err := globalConfig.ParseShutdownTimeout(); err != nil {
		return nil, err
	}
	if _, err := globalConfig.ParsePrivateKey(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func loadConfigFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// If config section exists, use it for main config
	if tempCfg.Config != nil {
		// Overlay config values onto existing defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, globalConfig); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else {
		// Otherwise unmarshal the whole file as main config
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	// Handle database section if present
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			name, blobConfig := pluginSection("blob", tempCfg.Database.Blob)
			if name != "" {
				globalConfig.BlobPlugin = name
			}
			mergePluginConfig(pluginConfig, "blob", blobConfig)
		}
		if tempCfg.Database.Metadata != nil {
			name, metadataConfig := pluginSection(
				"metadata",
				tempCfg.Database.Metadata,
			)
			if name != "" {
				globalConfig.MetadataPlugin = name
			}
			mergePluginConfig(pluginConfig, "metadata", metadataConfig)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// pluginSection splits a database section into the selected plugin name
// and the per-plugin option maps
func pluginSection(
	sectionName string,
	section map[string]any,
) (string, map[string]map[string]any) {
	var name string
	ret := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			if pluginName, ok := v.(string); ok {
				name = pluginName
			}
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				sectionName,
				k,
				v,
			)
		}
	}
	return name, ret
}

// mergePluginConfig merges section options into any existing plugin config
// of the same type instead of overwriting it
func mergePluginConfig(
	dst map[string]map[string]map[string]any,
	pluginType string,
	src map[string]map[string]any,
) {
	if dst[pluginType] == nil {
		dst[pluginType] = src
		return
	}
	maps.Copy(dst[pluginType], src)
}

func GetConfig() *Config {
	return globalConfig
}
