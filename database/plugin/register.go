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

package plugin

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to plugin environment variable names
const EnvPrefix = "METATRACER_DATABASE_"

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

// PluginTypeName returns the short name used for a plugin type in flags,
// environment variables and config files
func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// PluginTypeFromName is the inverse of PluginTypeName
func PluginTypeFromName(name string) (PluginType, bool) {
	switch name {
	case "blob":
		return PluginTypeBlob, true
	case "metadata":
		return PluginTypeMetadata, true
	default:
		return 0, false
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	// CustomEnvVar is an additional environment variable checked when the
	// standard one is not set
	CustomEnvVar string
	Type         PluginOptionType
}

type PluginEntry struct {
	NewFromOptionsFunc func() Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.RWMutex
)

// Register adds a plugin to the registry. It is normally called from the
// init() of the plugin package.
func Register(pluginEntry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered plugins of the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	var ret []PluginEntry
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	return ret
}

// GetPlugin returns a new instance of the named plugin built from its
// current option values, or nil if no such plugin is registered
func GetPlugin(pluginType PluginType, pluginName string) Plugin {
	entry := findEntry(pluginType, pluginName)
	if entry == nil || entry.NewFromOptionsFunc == nil {
		return nil
	}
	return entry.NewFromOptionsFunc()
}

func findEntry(pluginType PluginType, pluginName string) *PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for i := range pluginEntries {
		if pluginEntries[i].Type == pluginType &&
			pluginEntries[i].Name == pluginName {
			return &pluginEntries[i]
		}
	}
	return nil
}

func (p *PluginEntry) flagName(opt PluginOption) string {
	return fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(p.Type),
		p.Name,
		opt.Name,
	)
}

func (p *PluginEntry) envVarName(opt PluginOption) string {
	name := fmt.Sprintf(
		"%s%s_%s_%s",
		EnvPrefix,
		PluginTypeName(p.Type),
		p.Name,
		opt.Name,
	)
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// PopulateCmdlineOptions adds a flag for every plugin option to the flag set.
// Flags are named <type>-<plugin>-<option>.
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for i := range pluginEntries {
		entry := &pluginEntries[i]
		for _, opt := range entry.Options {
			if err := entry.addFlag(fs, opt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *PluginEntry) addFlag(fs *pflag.FlagSet, opt PluginOption) error {
	name := p.flagName(opt)
	switch opt.Type {
	case PluginOptionTypeString:
		dest, ok := opt.Dest.(*string)
		if !ok {
			return fmt.Errorf("option %s: destination is not *string", name)
		}
		def, _ := opt.DefaultValue.(string)
		fs.StringVar(dest, name, def, opt.Description)
	case PluginOptionTypeBool:
		dest, ok := opt.Dest.(*bool)
		if !ok {
			return fmt.Errorf("option %s: destination is not *bool", name)
		}
		def, _ := opt.DefaultValue.(bool)
		fs.BoolVar(dest, name, def, opt.Description)
	case PluginOptionTypeInt:
		dest, ok := opt.Dest.(*int)
		if !ok {
			return fmt.Errorf("option %s: destination is not *int", name)
		}
		def, _ := opt.DefaultValue.(int)
		fs.IntVar(dest, name, def, opt.Description)
	case PluginOptionTypeUint:
		dest, ok := opt.Dest.(*uint64)
		if !ok {
			return fmt.Errorf("option %s: destination is not *uint64", name)
		}
		def, _ := opt.DefaultValue.(uint64)
		fs.Uint64Var(dest, name, def, opt.Description)
	default:
		return fmt.Errorf("option %s: unknown type %d", name, opt.Type)
	}
	return nil
}

// ProcessEnvVars applies plugin options from environment variables named
// METATRACER_DATABASE_<TYPE>_<PLUGIN>_<OPTION>, falling back to the option's
// CustomEnvVar
func ProcessEnvVars() error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for i := range pluginEntries {
		entry := &pluginEntries[i]
		for j := range entry.Options {
			opt := &entry.Options[j]
			envName := entry.envVarName(*opt)
			val, ok := os.LookupEnv(envName)
			if !ok && opt.CustomEnvVar != "" {
				envName = opt.CustomEnvVar
				val, ok = os.LookupEnv(envName)
			}
			if !ok {
				continue
			}
			parsed, err := parseOptionString(opt.Type, val)
			if err != nil {
				return fmt.Errorf("%s: %w", envName, err)
			}
			if err := opt.setValue(parsed); err != nil {
				return fmt.Errorf("%s: %w", envName, err)
			}
		}
	}
	return nil
}

func parseOptionString(optType PluginOptionType, val string) (any, error) {
	switch optType {
	case PluginOptionTypeString:
		return val, nil
	case PluginOptionTypeBool:
		return strconv.ParseBool(val)
	case PluginOptionTypeInt:
		return strconv.Atoi(val)
	case PluginOptionTypeUint:
		return strconv.ParseUint(val, 10, 64)
	default:
		return nil, fmt.Errorf("unknown option type %d", optType)
	}
}

// ProcessConfig applies plugin options from a parsed config file. The map is
// keyed by plugin type name, then plugin name, then option name.
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for typeName, plugins := range pluginConfig {
		pluginType, ok := PluginTypeFromName(typeName)
		if !ok {
			return fmt.Errorf("unknown plugin type: %s", typeName)
		}
		for pluginName, options := range plugins {
			entry := findEntry(pluginType, pluginName)
			if entry == nil {
				return fmt.Errorf(
					"unknown %s plugin: %s",
					typeName,
					pluginName,
				)
			}
			for optName, optVal := range options {
				if err := setConfigOption(entry, optName, optVal); err != nil {
					return fmt.Errorf(
						"%s plugin %s: %w",
						typeName,
						pluginName,
						err,
					)
				}
			}
		}
	}
	return nil
}

func setConfigOption(entry *PluginEntry, optName string, optVal any) error {
	for j := range entry.Options {
		opt := &entry.Options[j]
		if opt.Name != optName {
			continue
		}
		// Config values arrive in whatever form the YAML decoder chose
		if s, ok := optVal.(string); ok && opt.Type != PluginOptionTypeString {
			parsed, err := parseOptionString(opt.Type, s)
			if err != nil {
				return fmt.Errorf("option %s: %w", optName, err)
			}
			optVal = parsed
		}
		return opt.setValue(optVal)
	}
	return fmt.Errorf("unknown option: %s", optName)
}
