package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gloss/internal"
	pkgconfig "github.com/starford/gloss/pkg/config"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

// loadConfig reads the config file on top of the defaults. A missing file
// is fine; the defaults serve ./library on port 8080.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	found, err := pkgconfig.LoadOptional(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", path))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := internal.ExportRequest{
		Input:            cmd.String("input"),
		Week:             int(cmd.Int("week")),
		Material:         int(cmd.Int("material")),
		Format:           cmd.String("format"),
		Out:              cmd.String("out"),
		CleanView:        cmd.Bool("clean"),
		ShowAnswers:      cmd.Bool("answers"),
		HideTranslations: cmd.Bool("no-translations"),
	}
	out, err := internal.Export(ctx, req, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("export error: %w", err)
	}
	fmt.Println(out)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "gloss",
		Usage:  "Annotated reading materials: course library, viewer, print and word-processor export",
		Action: serve,
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and library watcher",
				Flags:  []cli.Flag{configFlag()},
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Flags:  []cli.Flag{configFlag()},
				Action: mcp,
			},
			{
				Name:  "export",
				Usage: "Render one material of a course file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Course JSON file", Required: true},
					&cli.IntFlag{Name: "week", Aliases: []string{"w"}, Usage: "Week number", Value: 1},
					&cli.IntFlag{Name: "material", Aliases: []string{"m"}, Usage: "Material index within the week"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "viewer, print, pdf or word", Value: "pdf"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default: derived from the title)"},
					&cli.BoolFlag{Name: "clean", Usage: "Hide annotations"},
					&cli.BoolFlag{Name: "answers", Usage: "Include answer keys"},
					&cli.BoolFlag{Name: "no-translations", Usage: "Hide translations"},
				},
				Action: export,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
