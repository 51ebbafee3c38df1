// Copyright 2025 UMH Systems GmbH
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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/api"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/configstore"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/device"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/editor"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/logger"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/sentry"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/service/filesystem"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/stages"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/version"
)

var (
	settingsPath string
	logLevel     string
)

func main() {
	// Initialize the global logger first thing
	logger.Initialize()
	defer func() { _ = logger.Sync() }()

	rootCmd := &cobra.Command{
		Use:           "oak-config-builder",
		Short:         "Edit the vision pipeline config of OAK camera devices",
		Version:       version.GetAppVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if logLevel != "" {
				logger.SetLevel(logger.LogLevel(logLevel))
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", constants.DefaultSettingsPath, "service settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides LOGGING_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(renamePipelineCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSettings(ctx context.Context, log *zap.SugaredLogger) (config.Settings, error) {
	settings, err := config.LoadSettingsWithEnvOverrides(ctx, filesystem.NewDefaultService(), settingsPath, log)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	return settings, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the device config API and the editor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logger.For(logger.ComponentCore)
			log.Infof("Starting oak-config-builder %s", version.GetAppVersion())

			settings, err := loadSettings(ctx, log)
			if err != nil {
				return err
			}

			sentry.InitSentry(settings.SentryDSN, version.GetAppVersion(), true)

			metricsServer := metrics.SetupMetricsEndpoint(settings.MetricsAddr)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to shutdown metrics server: %w", err)
				}
			}()

			fs := filesystem.NewDefaultService()
			store := configstore.NewStore(settings.ConfigPath, settings.CamerasPath).WithFileSystemService(fs)

			deps := editor.Deps{FS: fs, ExportDir: settings.ExportDir, Stages: stages.Default}
			if settings.DeviceURL != "" {
				client := device.NewClient(settings.DeviceURL)
				deps.Source, deps.Saver = client, client
				log.Infof("Editor sessions use the device at %s", settings.DeviceURL)
			} else {
				local := configstore.Local{Store: store}
				deps.Source, deps.Saver = local, local
			}

			server := api.NewServer(settings, store, deps)
			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("failed to stop API server: %w", err)
			}
			log.Info("oak-config-builder stopped")

			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config.json]",
		Short: "Check a config for broken references and stage placement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logger.For(logger.ComponentCore)

			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				settings, err := loadSettings(ctx, log)
				if err != nil {
					return err
				}
				path = settings.ConfigPath
			}

			data, err := filesystem.NewDefaultService().ReadFile(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			cfg, err := config.Parse(data)
			if err != nil {
				return err
			}

			warnings := append(config.Validate(cfg), stages.Default.CheckConfig(cfg)...)
			for _, w := range warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", w.Path, w.Message, w.Code)
			}
			if len(warnings) > 0 {
				return fmt.Errorf("%s has %d warnings", path, len(warnings))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)

			return nil
		},
	}
}

func renamePipelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-pipeline FROM TO",
		Short: "Rename a pipeline template and every reference to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logger.For(logger.ComponentCore)

			settings, err := loadSettings(ctx, log)
			if err != nil {
				return err
			}
			store := configstore.NewStore(settings.ConfigPath, settings.CamerasPath)

			cfg, err := store.Load(ctx)
			if err != nil {
				return err
			}
			renamed, ok := config.RenamePipeline(cfg, args[0], args[1])
			if !ok {
				return errors.New("no pipeline template named " + args[0])
			}
			if err := store.Save(ctx, renamed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed pipeline %s to %s\n", args[0], args[1])

			return nil
		},
	}
}
