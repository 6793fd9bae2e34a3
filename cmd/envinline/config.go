// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/envinline/envinline/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App, root *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage envinline configuration",
		Long: `Manage envinline configuration.

Settings are merged from, in increasing priority:
  - the user file: ~/.config/envinline/envinline.cue (platform config dir)
  - the project file: ./envinline.cue
  - ENVINLINE_* environment variables, e.g. ENVINLINE_INLINE_CONCURRENCY=4

--config replaces both files with the given one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd, app, root)
		},
	})

	var force, user bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default envinline.cue into the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(app, root, user, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&user, "user", false, "write the user-level file instead of the project file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfigPaths(app, root)
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, root *rootFlagValues) error {
	baseDir, err := resolveProjectDir(root.projectDir)
	if err != nil {
		return err
	}
	cfg, source, err := config.LoadWithSource(cmd.Context(), config.LoadOptions{
		ConfigFilePath: root.configPath,
		BaseDir:        baseDir,
	})
	if err != nil {
		return err
	}

	if source == "" {
		fmt.Fprintf(app.stdout, "// %s\n", SubtitleStyle.Render("no config file found, showing defaults"))
	} else {
		fmt.Fprintf(app.stdout, "// source: %s\n", source)
	}
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func initConfig(app *App, root *rootFlagValues, user, force bool) error {
	var path string
	if user {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, config.FileName())
	} else {
		baseDir, err := resolveProjectDir(root.projectDir)
		if err != nil {
			return err
		}
		path = filepath.Join(baseDir, config.FileName())
	}

	if err := config.CreateDefaultConfig(path, force); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPaths(app *App, root *rootFlagValues) error {
	if root.configPath != "" {
		fmt.Fprintf(app.stdout, "%s %s\n", KeyStyle.Render("Config file:"), root.configPath)
		return nil
	}

	if dir, err := config.ConfigDir(); err == nil {
		fmt.Fprintf(app.stdout, "%s %s\n", KeyStyle.Render("User file:"), filepath.Join(dir, config.FileName()))
	}
	baseDir, err := resolveProjectDir(root.projectDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s %s\n", KeyStyle.Render("Project file:"), filepath.Join(baseDir, config.FileName()))
	return nil
}
