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

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/blinklabs-io/metatracer/database/plugin"
	"github.com/blinklabs-io/metatracer/internal/config"
	"github.com/blinklabs-io/metatracer/internal/version"
)

const programName = "metatracer"

const rootLongHelp = `metatracer keeps a registry of metadata records keyed by 32-byte IDs.

Each record holds a content hash, a URI, an owner address and a version
counter. Any address may create a record under an unused ID; only the
owner may update it, and every update bumps the version. Record JSON
documents are stored as versioned content objects and served back under
/objects, and every committed change is announced on the internal event bus.

Running without a subcommand starts the JSON API (same as "serve").

Configuration is read from --config, ~/.metatracer/metatracer.yaml or
/etc/metatracer/metatracer.yaml, then overridden by METATRACER_* environment
variables and finally by command line flags. Storage is split into a blob
plugin (content objects) and a metadata plugin (records and history); use
"metatracer list" to see them and their options.`

// errPluginsListed stops command execution after --blob/--metadata list
var errPluginsListed = errors.New("plugins listed")

// cliOptions holds the flags shared by every subcommand
type cliOptions struct {
	configFile     string
	blobPlugin     string
	metadataPlugin string
	debug          bool
}

func newLogger(debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// setMaxProcs matches GOMAXPROCS to the container CPU quota
func setMaxProcs(logger *slog.Logger) error {
	_, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		logger.Info(fmt.Sprintf(format, v...), "component", programName)
	}))
	return err
}

// pluginSummary describes the registered plugins of each given type
func pluginSummary(pluginTypes ...plugin.PluginType) string {
	var buf strings.Builder
	for i, pluginType := range pluginTypes {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "%s plugins:\n", plugin.PluginTypeName(pluginType))
		for _, p := range plugin.GetPlugins(pluginType) {
			fmt.Fprintf(&buf, "  %-10s %s\n", p.Name, p.Description)
			for _, opt := range p.Options {
				fmt.Fprintf(
					&buf,
					"      --%s-%s-%s  %s\n",
					plugin.PluginTypeName(pluginType),
					p.Name,
					opt.Name,
					opt.Description,
				)
			}
		}
	}
	return buf.String()
}

// listRequested returns the plugin types whose selector flag was set to "list"
func (o *cliOptions) listRequested() []plugin.PluginType {
	var ret []plugin.PluginType
	if o.blobPlugin == "list" {
		ret = append(ret, plugin.PluginTypeBlob)
	}
	if o.metadataPlugin == "list" {
		ret = append(ret, plugin.PluginTypeMetadata)
	}
	return ret
}

// loadConfig reads the config file and environment, then applies the
// plugin selectors given explicitly on the command line
func (o *cliOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("blob") {
		cfg.BlobPlugin = o.blobPlugin
	}
	if flags.Changed("metadata") {
		cfg.MetadataPlugin = o.metadataPlugin
	}
	return cfg, nil
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "list [blob|metadata]",
		Short:     "Show storage plugins and their options",
		ValidArgs: []string{"blob", "metadata"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			pluginTypes := []plugin.PluginType{
				plugin.PluginTypeBlob,
				plugin.PluginTypeMetadata,
			}
			if len(args) == 1 {
				pluginType, _ := plugin.PluginTypeFromName(args[0])
				pluginTypes = []plugin.PluginType{pluginType}
			}
			fmt.Fprint(cmd.OutOrStdout(), pluginSummary(pluginTypes...))
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		// No config is needed to report the version
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"%s %s\n",
				programName,
				version.GetVersionString(),
			)
		},
	}
}

func newRootCommand() (*cobra.Command, error) {
	opts := &cliOptions{}
	serveCmd := serveCommand(opts)
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Versioned, owner-controlled metadata registry",
		Long:          rootLongHelp,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          serveCmd.RunE,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if pluginTypes := opts.listRequested(); len(pluginTypes) > 0 {
				fmt.Fprint(cmd.OutOrStdout(), pluginSummary(pluginTypes...))
				return errPluginsListed
			}
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithContext(cmd.Context(), cfg))
			return nil
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.debug, "debug", "D", false, "log at debug level with source locations")
	flags.StringVar(&opts.configFile, "config", "", "YAML config file")
	flags.StringVarP(
		&opts.blobPlugin,
		"blob",
		"b",
		config.DefaultBlobPlugin,
		"content object store plugin, or 'list'",
	)
	flags.StringVarP(
		&opts.metadataPlugin,
		"metadata",
		"m",
		config.DefaultMetadataPlugin,
		"record store plugin, or 'list'",
	)
	if err := plugin.PopulateCmdlineOptions(flags); err != nil {
		return nil, fmt.Errorf("register plugin flags: %w", err)
	}
	rootCmd.AddCommand(serveCmd, listCommand(), versionCommand())
	return rootCmd, nil
}

func main() {
	rootCmd, err := newRootCommand()
	if err == nil {
		err = rootCmd.Execute()
	}
	if err != nil && !errors.Is(err, errPluginsListed) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
