package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	serveradapter "github.com/evanschultz/lapse/internal/adapters/server"
	servercommon "github.com/evanschultz/lapse/internal/adapters/server/common"
	"github.com/evanschultz/lapse/internal/adapters/storage/diskv"
	"github.com/evanschultz/lapse/internal/adapters/storage/sqlite"
	"github.com/evanschultz/lapse/internal/app"
	"github.com/evanschultz/lapse/internal/config"
	"github.com/evanschultz/lapse/internal/domain"
	"github.com/evanschultz/lapse/internal/platform"
	"github.com/evanschultz/lapse/internal/surface"
	"github.com/evanschultz/lapse/internal/tui"
)

// version is stamped at build time.
var version = "dev"

// program is the part of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests replace it.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// now is the CLI clock.
var now = time.Now

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		// fang has already printed the styled error.
		os.Exit(1)
	}
}

// run executes the command tree with args and returns the command error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root,
		fang.WithVersion(version),
		fang.WithoutManpage(),
	)
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand assembles the lapse command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{appName: "lapse", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("LAPSE_DEV_MODE"); ok {
		flags.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("LAPSE_APP_NAME")); envApp != "" {
		flags.appName = envApp
	}

	root := &cobra.Command{
		Use:   "lapse",
		Short: "Track how long it has been since you last did the things that matter",
		Long: "lapse keeps one bubble per recurring activity and shows how long ago it was last done.\n" +
			"Click a bubble to reset it, drag it to arrange the board.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "tui", runTUI)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config TOML")
	pf.StringVar(&flags.dbPath, "db", "", "path to sqlite database")
	pf.StringVar(&flags.appName, "app", flags.appName, "application name for config/data path resolution")
	pf.BoolVar(&flags.devMode, "dev", flags.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(flags, stdout),
		newListCommand(flags, stdout, stderr),
		newExportCommand(flags, stdout, stderr),
		newImportCommand(flags, stdout, stderr),
		newServeCommand(flags, stderr),
	)
	return root
}

func newPathsCommand(flags *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			loc, err := resolveLocations(flags)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(loc)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", flags.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", flags.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", loc.Config)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", loc.Data)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", cfg.Database.Path)
			_, _ = fmt.Fprintf(stdout, "records: %s\n", cfg.Storage.DiskvDir)
			_, _ = fmt.Fprintf(stdout, "backend: %s\n", cfg.Storage.Backend)
			_, _ = fmt.Fprintf(stdout, "store: %s\n", storeLocation(cfg))
			return nil
		},
	}
}

func newListCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities and how long ago each was last done",
		Example: `
lapse list
lapse list --category friends
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "list", func(ctx context.Context, rt *runtime) error {
				return runList(ctx, rt, category, stdout)
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only list this category id")
	return cmd
}

func newExportCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the persisted activity record as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "export", func(ctx context.Context, rt *runtime) error {
				return runExport(ctx, rt.store, outPath, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace all activities with the ones in an exported record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withRuntime(cmd.Context(), flags, stderr, "import", func(ctx context.Context, rt *runtime) error {
				imported, skipped, err := runImport(ctx, rt.store, inPath)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "imported %d activities (%d skipped)\n", imported, skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input record JSON file")
	return cmd
}

func newServeCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
		origins     []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, MCP tools and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "serve", func(ctx context.Context, rt *runtime) error {
				srvCfg := serveradapter.Config{
					HTTPBind:           rt.cfg.Server.HTTPBind,
					APIEndpoint:        rt.cfg.Server.APIEndpoint,
					MCPEndpoint:        rt.cfg.Server.MCPEndpoint,
					CORSAllowedOrigins: rt.cfg.Server.CORSAllowedOrigins,
					ServerName:         flags.appName,
					ServerVersion:      version,
				}
				if cmd.Flags().Changed("http") {
					srvCfg.HTTPBind = httpBind
				}
				if cmd.Flags().Changed("api-endpoint") {
					srvCfg.APIEndpoint = apiEndpoint
				}
				if cmd.Flags().Changed("mcp-endpoint") {
					srvCfg.MCPEndpoint = mcpEndpoint
				}
				if cmd.Flags().Changed("cors-origin") {
					srvCfg.CORSAllowedOrigins = origins
				}
				return runServe(ctx, rt, srvCfg)
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "127.0.0.1:8080", "HTTP listen address")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "/api/v1", "HTTP API base endpoint")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP endpoint")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origin (repeatable)")
	return cmd
}

// runtime is the resolved state every data command works against.
type runtime struct {
	cfg     config.Config
	logger  *runtimeLogger
	storage app.RecordStorage
	store   *app.Store
	// metrics is set for serve so the store can feed it.
	metrics *serveradapter.Metrics
}

// withRuntime resolves config, logging and storage, loads the store, and runs fn.
func withRuntime(ctx context.Context, flags *globalFlags, stderr io.Writer, command string, fn func(context.Context, *runtime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	loc, err := resolveLocations(flags)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(loc)
	if err != nil {
		return err
	}

	logger, err := newRuntimeLogger(stderr, flags.appName, flags.devMode, cfg.Logging, now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// Runtime logs stay in the dev-file sink while the board owns the terminal.
		logger.muteConsole(true)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.consoleLive() {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", flags.appName, "dev_mode", flags.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", loc.Config, "data_dir", loc.Data, "store", storeLocation(cfg))
	logger.Info("configuration loaded", "config_path", loc.Config, "backend", cfg.Storage.Backend, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	storage, closeStorage, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStorage(); closeErr != nil {
			logger.Warn("storage close failed", "backend", cfg.Storage.Backend, "err", closeErr)
		}
	}()

	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		storage: storage,
	}
	storeCfg := app.StoreConfig{
		Key:         cfg.Storage.Key,
		DefaultSize: cfg.Board.BubbleSize,
		Logger:      logger,
	}
	if command == "serve" {
		rt.metrics = serveradapter.NewMetrics()
		storeCfg.OnChange = rt.metrics.ObserveActivities
	}
	rt.store = app.NewStore(storage, uuid.NewString, now, storeCfg)
	if err := rt.store.Load(ctx); err != nil {
		logger.Error("load activities failed", "key", cfg.Storage.Key, "err", err)
		return fmt.Errorf("load activities: %w", err)
	}

	logger.Info("command flow start", "command", command)
	if err := fn(ctx, rt); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

// resolveLocations applies the profile flags and path overrides.
func resolveLocations(flags *globalFlags) (platform.Locations, error) {
	return platform.Resolve(
		platform.Profile{Name: flags.appName, Dev: flags.devMode},
		platform.Overrides{Config: flags.configPath, Database: flags.dbPath},
	)
}

// loadConfig reads the profile config over defaults rooted in loc. A pinned
// database path wins over the file, and relative log dirs live under the
// profile data dir.
func loadConfig(loc platform.Locations) (config.Config, error) {
	defaults := config.Default(loc.Database)
	defaults.Storage.DiskvDir = loc.Records
	defaults.Logging.DevFile.Dir = loc.Logs
	cfg, err := config.Load(loc.Config, defaults)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", loc.Config, err)
	}
	if loc.DatabasePinned {
		cfg.Database.Path = loc.Database
	}
	cfg.Logging.DevFile.Dir = loc.Under(cfg.Logging.DevFile.Dir)
	return cfg, nil
}

// storeLocation names the file or directory holding the activity record.
func storeLocation(cfg config.Config) string {
	return platform.Locations{
		Database: cfg.Database.Path,
		Records:  cfg.Storage.DiskvDir,
	}.Store(string(cfg.Storage.Backend))
}

// openStorage opens the configured record backend and returns its closer.
func openStorage(cfg config.Config, logger *runtimeLogger) (app.RecordStorage, func() error, error) {
	switch cfg.Storage.Backend {
	case config.StorageDiskv:
		logger.Info("opening diskv record store", "dir", cfg.Storage.DiskvDir)
		store, err := diskv.Open(cfg.Storage.DiskvDir)
		if err != nil {
			logger.Error("diskv open failed", "dir", cfg.Storage.DiskvDir, "err", err)
			return nil, nil, fmt.Errorf("open diskv record store: %w", err)
		}
		return store, func() error { return nil }, nil
	default:
		logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
		repo, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
			return nil, nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")
		return repo, repo.Close, nil
	}
}

// runTUI runs the interactive board until the user quits.
func runTUI(ctx context.Context, rt *runtime) error {
	opts, err := tuiOptions(ctx, rt)
	if err != nil {
		return err
	}
	m := tui.NewModel(rt.store, opts...)
	defer m.Close()

	rt.logger.Info("starting tui program loop", "activities", len(rt.store.List()))
	if _, err := programFactory(m).Run(); err != nil {
		return fmt.Errorf("run tui program: %w", err)
	}
	return nil
}

// tuiOptions maps board config into model options.
func tuiOptions(ctx context.Context, rt *runtime) ([]tui.Option, error) {
	board := rt.cfg.Board
	spawn, err := surface.ParseSpawnPolicy(board.Spawn)
	if err != nil {
		return nil, err
	}
	refresh, err := board.Refresh()
	if err != nil {
		return nil, err
	}
	pulse, err := board.Pulse()
	if err != nil {
		return nil, err
	}
	categories := make([]tui.Category, 0, len(board.Categories))
	for _, c := range board.Categories {
		categories = append(categories, tui.Category{ID: c.ID, Name: c.Name})
	}
	return []tui.Option{
		tui.WithContext(ctx),
		tui.WithCategories(categories),
		tui.WithSurfaceConfig(surface.Config{
			DragThreshold: board.DragThreshold,
			PulseDuration: pulse,
			Spawn:         spawn,
			Logger:        rt.logger,
		}),
		tui.WithRefreshInterval(refresh),
		tui.WithFallbackImage(board.FallbackImage),
		tui.WithLogger(rt.logger),
	}, nil
}

// runList prints one table row per activity.
// savedAtReader is implemented by record backends that know when a record was
// last written.
type savedAtReader interface {
	UpdatedAt(context.Context, string) (time.Time, error)
}

// runList prints a table of activities and when the record was last saved.
func runList(ctx context.Context, rt *runtime, category string, stdout io.Writer) error {
	names := make(map[string]string, len(rt.cfg.Board.Categories))
	for _, c := range rt.cfg.Board.Categories {
		names[c.ID] = c.Name
	}
	var activities []domain.Activity
	if category = strings.TrimSpace(category); category != "" {
		activities = rt.store.ListByCategory(category)
	} else {
		activities = rt.store.List()
	}
	if len(activities) == 0 {
		_, _ = fmt.Fprintln(stdout, "no activities")
		return nil
	}

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	tbl := uitable.New()
	tbl.MaxColWidth = 40
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("TITLE"), bold.Sprint("CATEGORY"), bold.Sprint("LAST DONE"), bold.Sprint("POSITION"), bold.Sprint("ID"))
	current := now()
	for _, a := range activities {
		name := names[a.Category]
		if name == "" {
			name = a.Category
		}
		tbl.AddRow(
			a.Title,
			name,
			domain.ElapsedLabel(a.ElapsedSince(), current),
			fmt.Sprintf("%g,%g", a.Position.X, a.Position.Y),
			faint.Sprint(a.ID),
		)
	}
	if _, err := fmt.Fprintln(stdout, tbl); err != nil {
		return err
	}
	if reader, ok := rt.storage.(savedAtReader); ok {
		saved, err := reader.UpdatedAt(ctx, rt.cfg.Storage.Key)
		switch {
		case err == nil && !saved.IsZero():
			_, _ = faint.Fprintf(stdout, "last saved %s\n", humanize.RelTime(saved, current, "ago", "from now"))
		case err != nil && !errors.Is(err, app.ErrRecordNotFound):
			rt.logger.Warn("read record save time failed", "key", rt.cfg.Storage.Key, "err", err)
		}
	}
	return nil
}

// runExport writes the persisted record, indented, to outPath or stdout.
func runExport(ctx context.Context, store *app.Store, outPath string, stdout io.Writer) error {
	payload, err := store.Export(ctx)
	if err != nil {
		return fmt.Errorf("export activities: %w", err)
	}
	var encoded bytes.Buffer
	if err := json.Indent(&encoded, payload, "", "  "); err != nil {
		return fmt.Errorf("indent export json: %w", err)
	}
	encoded.WriteByte('\n')

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded.Bytes()); err != nil {
			return fmt.Errorf("write export to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport replaces the store from an exported record file.
func runImport(ctx context.Context, store *app.Store, inPath string) (int, int, error) {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return 0, 0, fmt.Errorf("read import file: %w", err)
	}
	imported, skipped, err := store.Import(ctx, content)
	if err != nil {
		return 0, 0, err
	}
	return imported, skipped, nil
}

// runServe starts serve mode over the runtime's store.
func runServe(ctx context.Context, rt *runtime, cfg serveradapter.Config) error {
	metrics := rt.metrics
	if metrics == nil {
		metrics = serveradapter.NewMetrics()
	}
	metrics.ObserveActivities(rt.store.List())

	key := rt.cfg.Storage.Key
	storage := rt.storage
	rt.logger.Info("serve endpoints resolved", "http", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
	return serveCommandRunner(ctx, cfg, serveradapter.Dependencies{
		Activities: servercommon.NewStoreService(rt.store, now, metrics),
		Metrics:    metrics,
		Ready: func(ctx context.Context) error {
			if _, err := storage.ReadRecord(ctx, key); err != nil && !errors.Is(err, app.ErrRecordNotFound) {
				return fmt.Errorf("read activities record: %w", err)
			}
			return nil
		},
	})
}

// parseBoolEnv reads a boolean environment variable; ok is false when unset or invalid.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
