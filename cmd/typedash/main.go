// Package main provides the CLI entrypoint for typedash.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typedash/internal/config"
	"github.com/verte-zerg/typedash/internal/dashboard"
	"github.com/verte-zerg/typedash/internal/generator"
	"github.com/verte-zerg/typedash/internal/loader"
	"github.com/verte-zerg/typedash/internal/logger"
	"github.com/verte-zerg/typedash/internal/model"
	"github.com/verte-zerg/typedash/internal/stats"
	"github.com/verte-zerg/typedash/internal/statsui"
	"github.com/verte-zerg/typedash/internal/store"
	"github.com/verte-zerg/typedash/internal/web"
)

const (
	defaultAddr         = ":8080"
	defaultSourceKind   = sourceDir
	defaultRankingLimit = 10
	defaultCurveWindow  = 5
)

const (
	sourceDir      = "dir"
	sourceSQLite   = "sqlite"
	sourcePostgres = "postgres"
)

var (
	configPath       string
	envFile          string
	sourceKind       string
	dataDir          string
	dbPath           string
	newGraduatesOnly bool
	scoreFloor       float64
	hourOffset       int
	weekdayShift     int

	serveAddr string

	reportTab    string
	reportPeriod string
	reportUser   int64
	reportLimit  int
	reportWindow int

	tuiPeriod string
	tuiUser   int64
	tuiWindow int

	importFrom string

	seedOut    string
	seedUsers  int
	seedDays   int
	seedValue  int64
	seedImport bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typedash",
		Short:         "Typing telemetry dashboard",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.StringVar(&sourceKind, "source", defaultSourceKind, "table source: dir, sqlite or postgres")
	flags.StringVar(&dataDir, "data-dir", config.DefaultDataDir(), "directory holding t_score, t_miss and m_user tables")
	flags.StringVar(&dbPath, "db-path", config.DefaultDBPath(), "SQLite database path")
	flags.BoolVar(&newGraduatesOnly, "new-graduates-only", false, "restrict the cohort to new graduates")
	flags.Float64Var(&scoreFloor, "score-floor", 0, "drop attempts scoring at or below this value")
	flags.IntVar(&hourOffset, "hour-offset", stats.DefaultClock.HourOffset, "hours added to UTC for display")
	flags.IntVar(&weekdayShift, "weekday-shift", stats.DefaultClock.WeekdayShift, "weekday index shift for display")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// app is the resolved runtime configuration shared by every command.
type app struct {
	file   config.FileConfig
	env    config.EnvConfig
	log    *logger.Logger
	cohort loader.Cohort
	clock  stats.Clock
}

func loadApp(cmd *cobra.Command) (*app, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	log, err := logger.New(env.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	applyStringConfig(cmd, "source", &sourceKind, fileCfg.Source.Kind)
	applyStringConfig(cmd, "data-dir", &dataDir, fileCfg.Source.DataDir)
	applyStringConfig(cmd, "db-path", &dbPath, fileCfg.Source.DBPath)
	applyBoolConfig(cmd, "new-graduates-only", &newGraduatesOnly, fileCfg.Cohort.NewGraduatesOnly)
	applyIntConfig(cmd, "hour-offset", &hourOffset, fileCfg.Display.HourOffset)
	applyIntConfig(cmd, "weekday-shift", &weekdayShift, fileCfg.Display.WeekdayShift)

	cohort := loader.Cohort{NewGraduatesOnly: newGraduatesOnly}
	switch {
	case cmd.Flags().Changed("score-floor"):
		floor := scoreFloor
		cohort.ScoreFloor = &floor
	case fileCfg.Cohort.ScoreFloor != nil:
		floor := *fileCfg.Cohort.ScoreFloor
		cohort.ScoreFloor = &floor
	}

	return &app{
		file:   fileCfg,
		env:    env,
		log:    log,
		cohort: cohort,
		clock:  stats.Clock{HourOffset: hourOffset, WeekdayShift: weekdayShift},
	}, nil
}

// openSource returns the configured table source and, for database sources,
// the store behind it. Postgres is not dialed here so an unreachable server
// shows up as a load error on each render. The caller closes the store.
func (a *app) openSource() (loader.Source, *store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(sourceKind)) {
	case sourceDir:
		return loader.DirSource{Dir: dataDir}, nil, nil
	case sourceSQLite:
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db: %w", err)
		}
		return loader.StoreSource{Store: st}, st, nil
	case sourcePostgres:
		if !a.env.DB.Configured() {
			return nil, nil, fmt.Errorf("postgres source needs %s", config.EnvDBHost)
		}
		st, err := store.OpenPostgres(a.env.DB.DSN())
		if err != nil {
			return nil, nil, err
		}
		return loader.StoreSource{Store: st}, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown --source %q (use dir, sqlite or postgres)", sourceKind)
	}
}

// connectPostgres opens Postgres and pings it before writing.
func (a *app) connectPostgres(ctx context.Context) (*store.Store, error) {
	if !a.env.DB.Configured() {
		return nil, fmt.Errorf("postgres source needs %s", config.EnvDBHost)
	}
	return store.ConnectPostgres(ctx, a.env.DB.DSN())
}

func closeStore(st *store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web dashboard",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()
	applyStringConfig(cmd, "addr", &serveAddr, a.file.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, st, err := a.openSource()
	if err != nil {
		return err
	}
	defer closeStore(st)

	var upload web.UploadTarget = web.DirTarget{Dir: dataDir}
	if st != nil {
		upload = web.StoreTarget{Store: st}
	}
	if !a.env.UploadEnabled() {
		a.log.Warn("upload disabled", "reason", "no upload password configured")
	}

	srv, err := web.New(web.Config{
		Controller: &dashboard.Controller{
			Source:       src,
			Cohort:       a.cohort,
			Clock:        a.clock,
			Log:          a.log.With("component", "dashboard"),
			RankingLimit: defaultRankingLimit,
		},
		Sessions:       dashboard.NewSessions(),
		Upload:         upload,
		UploadPassword: a.env.UploadPassword,
		Log:            a.log.With("component", "http"),
	})
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	a.log.Info("starting dashboard", "source", sourceKind, "addr", serveAddr)
	return srv.Run(ctx, serveAddr)
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a text report",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportTab, "tab", "overall", "view: overall, personal, analytics or all")
	cmd.Flags().StringVar(&reportPeriod, "period", string(dashboard.PeriodAll), "period: all, 7d, 30d or 90d")
	cmd.Flags().Int64Var(&reportUser, "user", 0, "user id for the personal view (default: first user)")
	cmd.Flags().IntVar(&reportLimit, "limit", defaultRankingLimit, "ranking rows to print")
	cmd.Flags().IntVar(&reportWindow, "window", defaultCurveWindow, "moving average window")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	tab := strings.ToLower(strings.TrimSpace(reportTab))
	switch tab {
	case dashboard.TabOverall, dashboard.TabPersonal, dashboard.TabAnalytics, "all":
	default:
		return fmt.Errorf("unknown --tab %q", reportTab)
	}
	if reportWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	src, st, err := a.openSource()
	if err != nil {
		return err
	}
	defer closeStore(st)

	tables, err := loader.Load(ctx, src, a.cohort)
	if err != nil {
		return err
	}
	tables = dashboard.FilterPeriod(tables, dashboard.ParsePeriod(reportPeriod))
	report := stats.NewReport(tables, a.clock)

	out := cmd.OutOrStdout()
	if tab == dashboard.TabOverall || tab == "all" {
		if err := stats.RenderOverall(out, report, reportLimit); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if tab == dashboard.TabPersonal || tab == "all" {
		userID, ok := pickUser(tables, reportUser, cmd.Flags().Changed("user"))
		if !ok {
			if _, err := fmt.Fprintln(out, stats.NoDataMessage); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		} else if err := stats.RenderPersonal(out, stats.NewPersonalReport(tables, userID), reportWindow); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if tab == dashboard.TabAnalytics || tab == "all" {
		if err := stats.RenderAnalytics(out, report); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// pickUser returns the requested user, or the first roster user when none
// was requested.
func pickUser(tables model.Tables, requested int64, explicit bool) (int64, bool) {
	if explicit {
		return requested, true
	}
	if len(tables.Users) > 0 {
		return tables.Users[0].UserID, true
	}
	if len(tables.Attempts) > 0 {
		return tables.Attempts[0].UserID, true
	}
	return 0, false
}

func newTUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the dashboard in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runTUICmd,
	}
	cmd.Flags().StringVar(&tuiPeriod, "period", string(dashboard.PeriodAll), "period: all, 7d, 30d or 90d")
	cmd.Flags().Int64Var(&tuiUser, "user", 0, "user id for the personal tab")
	cmd.Flags().IntVar(&tuiWindow, "window", defaultCurveWindow, "moving average window")
	return cmd
}

func runTUICmd(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	src, st, err := a.openSource()
	if err != nil {
		return err
	}
	defer closeStore(st)

	m := statsui.NewModel(statsui.Config{
		Source:      src,
		Cohort:      a.cohort,
		Clock:       a.clock,
		Period:      dashboard.ParsePeriod(tuiPeriod),
		UserID:      tuiUser,
		HasUser:     cmd.Flags().Changed("user"),
		CurveWindow: tuiWindow,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load CSV/XLSX tables into the database",
		Args:  cobra.NoArgs,
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&importFrom, "from", "", "directory with t_score, t_miss and m_user files (default: --data-dir)")
	return cmd
}

func runImportCmd(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	from := importFrom
	if from == "" {
		from = dataDir
	}
	ctx := context.Background()
	raw, err := loader.DirSource{Dir: from}.Load(ctx)
	if err != nil {
		return err
	}

	st, err := a.openImportTarget(ctx)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.ReplaceTables(ctx, raw); err != nil {
		return fmt.Errorf("failed to import tables: %w", err)
	}
	a.log.Info("tables imported",
		"from", from,
		"attempts", len(raw.Attempts),
		"misses", len(raw.Misses),
		"users", len(raw.Users),
	)
	logErrf("Imported %d attempts, %d misses and %d users\n", len(raw.Attempts), len(raw.Misses), len(raw.Users))
	return nil
}

// openImportTarget opens Postgres when it is the selected source and SQLite
// otherwise.
func (a *app) openImportTarget(ctx context.Context) (*store.Store, error) {
	if strings.EqualFold(strings.TrimSpace(sourceKind), sourcePostgres) {
		return a.connectPostgres(ctx)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func newSeedCmd() *cobra.Command {
	defaults := generator.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a generated demo cohort",
		Args:  cobra.NoArgs,
		RunE:  runSeedCmd,
	}
	cmd.Flags().StringVar(&seedOut, "out", "", "output directory (default: --data-dir)")
	cmd.Flags().IntVar(&seedUsers, "users", defaults.Users, "number of users")
	cmd.Flags().IntVar(&seedDays, "days", defaults.Days, "number of days")
	cmd.Flags().Int64Var(&seedValue, "seed", defaults.Seed, "random seed")
	cmd.Flags().BoolVar(&seedImport, "import", false, "also load the cohort into the database")
	return cmd
}

func runSeedCmd(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	if seedUsers <= 0 {
		return fmt.Errorf("--users must be > 0")
	}
	if seedDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	out := seedOut
	if out == "" {
		out = dataDir
	}

	opts := generator.DefaultOptions()
	opts.Users = seedUsers
	opts.Days = seedDays
	opts.Seed = seedValue
	raw := generator.New(opts.Seed).Generate(opts)
	if err := generator.WriteCSV(out, raw); err != nil {
		return err
	}
	logErrf("Wrote %d attempts for %d users to %s\n", len(raw.Attempts), len(raw.Users), out)

	if !seedImport {
		return nil
	}
	ctx := context.Background()
	st, err := a.openImportTarget(ctx)
	if err != nil {
		return err
	}
	defer closeStore(st)
	if err := st.ReplaceTables(ctx, raw); err != nil {
		return fmt.Errorf("failed to import tables: %w", err)
	}
	logErrln("Imported demo cohort into the database")
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# typedash configuration
# Uncomment a value to enable it. CLI flags override config values.
# Database credentials and the upload password come from the environment
# (%s, %s, ...), optionally via a .env file.

[server]
# addr = %q               # Listen address for serve

[source]
# kind = %q               # dir, sqlite or postgres
# data-dir = %q
# db-path = %q

[cohort]
# new-graduates-only = false   # Only keep users flagged as new graduates
# score-floor = 0.0            # Drop attempts scoring at or below this value

[display]
# hour-offset = %d          # Hours added to UTC timestamps
# weekday-shift = %d        # Weekday index shift (1 = Monday first)
`,
		config.EnvDBHost,
		config.EnvUploadPassword,
		defaultAddr,
		defaultSourceKind,
		config.DefaultDataDir(),
		config.DefaultDBPath(),
		stats.DefaultClock.HourOffset,
		stats.DefaultClock.WeekdayShift,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
