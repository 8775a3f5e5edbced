package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/recipebox/internal"
	pkgconfig "github.com/starford/recipebox/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadIfExists(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file %s not found", configPath)
	}
	if dir := cmd.String("recipes"); dir != "" {
		cfg.Recipes.Path = dir
	}
	if dir := cmd.String("layouts"); dir != "" {
		cfg.Layouts.OverridesPath = dir
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.App.HTTP.Port = int(port)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func check(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	err = internal.Check(ctx, os.Stdout,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr))
	if errors.Is(err, internal.ErrProblemsFound) {
		return cli.Exit("", 1)
	}
	return err
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithVersion(version))
}

func main() {
	dirFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "recipes",
			Usage:   "Recipes directory (overrides config)",
			Sources: cli.EnvVars("RECIPEBOX_RECIPES"),
		},
		&cli.StringFlag{
			Name:    "layouts",
			Usage:   "Layout overrides directory (overrides config)",
			Sources: cli.EnvVars("RECIPEBOX_LAYOUTS"),
		},
	}

	cmd := &cli.Command{
		Name:    "recipebox",
		Usage:   "Recipe site served from a directory of Markdown files with editable layouts",
		Version: version,
		Action:  serve,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP port (overrides config)",
			},
		}, dirFlags...),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the site and API (default)",
				Action: serve,
			},
			{
				Name:   "check",
				Usage:  "Scan recipes and layouts once and report problems",
				Action: check,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
