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
	"log/slog"

	"github.com/spf13/cobra"

	// Register storage plugins
	_ "github.com/blinklabs-io/metatracer/database"
	"github.com/blinklabs-io/metatracer/internal/config"
	"github.com/blinklabs-io/metatracer/internal/node"
	"github.com/blinklabs-io/metatracer/internal/version"
)

func serveCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the registry JSON API and metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			logger := newLogger(opts.debug)
			slog.SetDefault(logger)
			if err := setMaxProcs(logger); err != nil {
				return err
			}
			logger.Info(
				"starting "+programName,
				"component", programName,
				"version", version.GetVersionString(),
			)
			return node.Run(cfg, logger)
		},
	}
}
