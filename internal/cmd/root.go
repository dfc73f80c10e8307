package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/noot-app/mealbasket-mcp-server/internal/auth"
	"github.com/noot-app/mealbasket-mcp-server/internal/basket"
	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/config"
	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/noot-app/mealbasket-mcp-server/internal/mcpgo"
	"github.com/noot-app/mealbasket-mcp-server/internal/metrics"
	"github.com/noot-app/mealbasket-mcp-server/internal/server"
	"github.com/noot-app/mealbasket-mcp-server/internal/version"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Output formats of the plan command beyond basket.FormatText and basket.FormatCSV
const (
	formatJSON  = "json"
	formatStore = "store"
)

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mealbasket-mcp-server",
		Short: "Meal basket planning MCP server",
		Long: `Meal Basket MCP Server plans grocery baskets that meet a household's
nutrition targets from a priced product catalog, and finds substitutes for
products already in a basket.

The server operates in three modes:

1. STDIO Mode (--stdio): For local Claude Desktop integration
   - Uses stdio pipes for communication
   - No authentication required

2. HTTP Mode (default): For remote deployment
   - Exposes the MCP streamable HTTP endpoint at /mcp
   - Requires Bearer token authentication (except /health and /metrics)
   - Requests to /mcp are rate limited

3. Fetch Catalog Mode (--fetch-catalog): Download or seed the catalog and exit

Available MCP Tools:
- plan_basket, get_basket, export_basket, get_defaults
- search_catalog, list_categories
- find_alternatives, find_substitute, find_combined_alternatives
- substitute_line, substitute_line_combined, revert_line

Authentication (HTTP Mode Only):
Use the MEALBASKET_AUTH_TOKEN environment variable to set the token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch, _ := cmd.Flags().GetBool("fetch-catalog")
			if fetch {
				return runFetchCatalogMode(cmd)
			}

			stdio, _ := cmd.Flags().GetBool("stdio")
			if stdio {
				return runStdioMode(cmd)
			}
			return runHTTPMode(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default: ./mealbasket.yaml)")
	rootCmd.Flags().Bool("stdio", false, "Run in stdio mode for local Claude Desktop integration (default: HTTP mode for remote deployment)")
	rootCmd.Flags().Bool("fetch-catalog", false, "Fetch the catalog file and exit")

	rootCmd.AddCommand(newPlanCmd(), newVersionCmd())
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// runFetchCatalogMode fetches the catalog and exits
func runFetchCatalogMode(cmd *cobra.Command) error {
	logger := config.NewTextLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("🗄️  Starting catalog fetch",
		"mode", "fetch-catalog",
		"remote", cfg.RemoteCatalog(),
		"target_dir", filepath.Dir(cfg.Data.CatalogPath))

	meta, err := server.NewInitializer(cfg, logger).FetchCatalog(cmd.Context())
	if err != nil {
		logger.Error("Failed to fetch catalog", "error", err)
		return err
	}

	logger.Info("✅ Catalog fetch completed successfully",
		"catalog_path", cfg.Data.CatalogPath,
		"metadata_path", cfg.Data.MetadataPath,
		"products", meta.Products,
		"source", meta.Source)
	return nil
}

// runStdioMode runs the MCP server in stdio mode for Claude Desktop
func runStdioMode(cmd *cobra.Command) error {
	// stdout carries the protocol, so logs go to stderr
	logger := config.NewLogger(true)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("🔌 Starting Meal Basket MCP Server in STDIO mode",
		"mode", "stdio",
		"auth", "not required for stdio mode",
		"transport", "stdio pipes")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	initializer := server.NewInitializer(cfg, logger)
	source, err := initializer.Initialize(ctx)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer source.Close()
	initializer.StartRefreshLoop(ctx, source)

	srv := mcpgo.NewServer(source, auth.NewBearerTokenAuth(cfg.Auth.Token), metrics.New(), mcpgo.OptionsFromConfig(cfg), logger)
	return srv.ServeStdio()
}

// runHTTPMode runs the MCP server in HTTP mode for remote deployment
func runHTTPMode(cmd *cobra.Command) error {
	logger := config.NewLogger(false)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("🌐 Starting Meal Basket MCP Server in HTTP mode",
		"mode", "http",
		"auth", "Bearer token required (except /health and /metrics)",
		"transport", "streamable HTTP",
		"port", cfg.Server.Port,
		"rate_limit_rpm", cfg.RateLimit.RequestsPerMinute)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	initializer := server.NewInitializer(cfg, logger)
	source, err := initializer.Initialize(ctx)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer source.Close()
	initializer.StartRefreshLoop(ctx, source)

	srv := mcpgo.NewServer(source, auth.NewBearerTokenAuth(cfg.Auth.Token), metrics.New(), mcpgo.OptionsFromConfig(cfg), logger)
	return server.Run(ctx, ":"+cfg.Server.Port, srv.Handler(), logger)
}

func newPlanCmd() *cobra.Command {
	var (
		days       int
		household  int
		calories   float64
		exclusions []string
		budget     float64
		store      string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a basket and print it",
		Long: `Plan a basket against the local catalog and print it as a shopping list,
CSV, JSON or a store export. The catalog file is seeded or downloaded first,
the same way the server does it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := config.NewTextLogger(cmd.ErrOrStderr())
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			parsed, err := diet.Parse(exclusions)
			if err != nil {
				return err
			}
			target := basket.DefaultTarget()
			if calories > 0 {
				target.Calories = calories
			}
			if store == "" {
				store = cfg.Basket.DefaultStore
			}
			req := basket.Request{
				Days:          days,
				HouseholdSize: household,
				Target:        target,
				Meals:         basket.AllMeals(),
				Exclusions:    parsed,
				Store:         store,
			}
			if budget != 0 {
				b := decimal.NewFromFloat(budget)
				req.Budget = &b
			}

			source, err := server.NewInitializer(cfg, logger).Initialize(cmd.Context())
			if err != nil {
				return err
			}
			defer source.Close()

			builder := basket.NewBuilder(catalog.WithTimeout(source, cfg.Catalog.Timeout), mcpgo.OptionsFromConfig(cfg).Planner, logger)
			b, err := builder.Build(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writePlan(cmd, b, format)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "Number of days to plan for")
	cmd.Flags().IntVarP(&household, "household", "n", 1, "Number of people")
	cmd.Flags().Float64Var(&calories, "calories", 0, "Daily calories per person (default: recommended intake)")
	cmd.Flags().StringSliceVarP(&exclusions, "exclude", "x", nil, "Dietary exclusions, e.g. vegan,gluten")
	cmd.Flags().Float64Var(&budget, "budget", 0, "Budget for the whole basket in kr (0: no budget)")
	cmd.Flags().StringVar(&store, "store", "", "Store to price the basket at")
	cmd.Flags().StringVarP(&format, "format", "f", basket.FormatText, "Output format: text, csv, json or store")
	return cmd
}

func writePlan(cmd *cobra.Command, b *basket.Basket, format string) error {
	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Basket *basket.Basket `json:"basket"`
			Report basket.Report  `json:"report"`
		}{b, b.Report()})
	case formatStore:
		if b.Store == "" {
			return fmt.Errorf("--store is required for the store format")
		}
		_, err := fmt.Fprintln(out, b.ForStore(b.Store).DetailedText)
		return err
	default:
		return b.Export(out, format)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// Execute runs the root command with the process arguments
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// Run is the main entry point for the CLI application
func Run() error {
	return Execute()
}
