// Package main provides the CLI entrypoint for chordarena.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/chordarena/internal/arena"
	"github.com/verte-zerg/chordarena/internal/backend"
	"github.com/verte-zerg/chordarena/internal/config"
	"github.com/verte-zerg/chordarena/internal/httpapi"
	"github.com/verte-zerg/chordarena/internal/logging"
	"github.com/verte-zerg/chordarena/internal/model"
	"github.com/verte-zerg/chordarena/internal/session"
	"github.com/verte-zerg/chordarena/internal/stats"
	"github.com/verte-zerg/chordarena/internal/statsui"
	"github.com/verte-zerg/chordarena/internal/store"
	"github.com/verte-zerg/chordarena/internal/tui"
)

const (
	defaultCurveWindow = 20
	defaultAddr        = ":8080"
	defaultLogLevel    = "info"
	callTimeout        = 10 * time.Second
)

var (
	playDevice       string
	playStartSeconds int
	playSeed         int64
	playBackend      string

	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsAll         bool
	statsPlain       bool

	missionsClaim int64

	serveAddr string
	serveDB   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chordarena",
		Short:         "Chord naming quiz with arenas, bosses and daily missions",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.PersistentFlags().StringVar(&playDevice, "device", "", "device id (default: generated once and stored)")
	rootCmd.PersistentFlags().StringVar(&playBackend, "backend", "", "backend server URL (default: local database)")
	rootCmd.Flags().IntVar(&playStartSeconds, "start-seconds", session.DefaultStartSeconds, "starting time in seconds")
	rootCmd.Flags().Int64Var(&playSeed, "seed", 0, "random seed (0 picks one)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newMissionsCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// loadFileConfig reads the config file and applies values for flags the user left unset.
func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "device", &playDevice, fileCfg.Play.Device)
	applyStringConfig(cmd, "backend", &playBackend, fileCfg.Play.Backend)
	return fileCfg, nil
}

func resolveDevice() (string, error) {
	if id := strings.TrimSpace(playDevice); id != "" {
		return id, nil
	}
	return config.DeviceID(config.DefaultDevicePath())
}

// openBackend returns the HTTP client when a backend URL is set and the local store otherwise.
func openBackend(fileCfg config.FileConfig) (backend.Backend, func(), error) {
	if url := strings.TrimSpace(playBackend); url != "" {
		return httpapi.NewClient(url, nil), func() {}, nil
	}
	st, err := store.Open(config.DefaultDBPath(), store.WithSalt(missionSalt(fileCfg)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	closeFn := func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
	return st, closeFn, nil
}

// missionSalt prefers the environment over the config file.
func missionSalt(fileCfg config.FileConfig) string {
	if fileCfg.Server.Salt != nil && os.Getenv(config.EnvMissionSalt) == "" {
		return *fileCfg.Server.Salt
	}
	return config.Getenv(config.EnvMissionSalt, store.DefaultSalt)
}

func logLevel(fileCfg config.FileConfig) string {
	level := config.Getenv(config.EnvLogLevel, defaultLogLevel)
	if fileCfg.Log.Level != nil && os.Getenv(config.EnvLogLevel) == "" {
		level = *fileCfg.Log.Level
	}
	return level
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(config.DefaultEnvPath()); err != nil {
		return err
	}
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "start-seconds", &playStartSeconds, fileCfg.Play.StartSeconds)
	applyInt64Config(cmd, "seed", &playSeed, fileCfg.Play.Seed)

	deviceID, err := resolveDevice()
	if err != nil {
		return err
	}
	cfg := model.Config{
		DeviceID:     deviceID,
		StartSeconds: playStartSeconds,
		Seed:         playSeed,
		BackendURL:   playBackend,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logPath := config.DefaultLogPath()
	if fileCfg.Log.File != nil {
		logPath = *fileCfg.Log.File
	}
	logger, logCloser, err := logging.File(logPath, logLevel(fileCfg))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logCloser.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	b, closeBackend, err := openBackend(fileCfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Info().Str("device", cfg.DeviceID).Str("backend", backendName(cfg)).Int64("seed", seed).Msg("starting play")

	m := tui.NewModel(cfg, b, rand.New(rand.NewSource(seed)), session.SystemClock{}, logger)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if s, ok := m.Summary(); ok {
		logErrf("Last session: score %d, level %d, %d XP (%s)\n", s.Score, s.Level, s.XP, s.Reason)
	}
	return nil
}

func backendName(cfg model.Config) string {
	if cfg.BackendURL != "" {
		return cfg.BackendURL
	}
	return "local"
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
	path := config.DefaultConfigPath()
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

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show session stats from the local database",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsAll, "all", false, "include every device")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "last", &statsLast, fileCfg.Stats.Last)
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)
	if statsLast < 0 || statsCurveWindow < 0 {
		return fmt.Errorf("--last and --curve-window must be >= 0")
	}

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	cfg := model.StatsConfig{
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}
	if !statsAll {
		if cfg.DeviceID, err = resolveDevice(); err != nil {
			return err
		}
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	out := cmd.OutOrStdout()
	if !statsPlain && stats.IsTerminal(out) {
		program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build stats: %w", err)
	}

	if err := stats.RenderSummary(out, report.Sessions); err != nil {
		return err
	}
	if err := stats.RenderArenas(out, report.Arenas); err != nil {
		return err
	}
	if err := stats.RenderHistory(out, report.Window); err != nil {
		return err
	}
	return stats.RenderCurves(out, report.Sessions, cfg.CurveWindow, 0, stats.UseColor(out))
}

func newMissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "List today's missions or claim a reward",
		Args:  cobra.NoArgs,
		RunE:  runMissionsCmd,
	}
	cmd.Flags().Int64Var(&missionsClaim, "claim", 0, "claim the reward of a completed mission by id")
	return cmd
}

func runMissionsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	deviceID, err := resolveDevice()
	if err != nil {
		return err
	}
	b, closeBackend, err := openBackend(fileCfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	missions, err := b.FetchDailyMissions(ctx, deviceID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if missionsClaim == 0 {
		return renderMissions(out, missions)
	}

	reward, err := b.ClaimMissionReward(ctx, missionsClaim)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return fmt.Errorf("mission %d not found", missionsClaim)
	case errors.Is(err, backend.ErrNotCompleted):
		return fmt.Errorf("mission %d is not completed yet", missionsClaim)
	case errors.Is(err, backend.ErrAlreadyClaimed):
		return fmt.Errorf("mission %d was already claimed", missionsClaim)
	case err != nil:
		return err
	}
	return printLine(out, formatReward(reward))
}

func renderMissions(w io.Writer, missions []model.Mission) error {
	if len(missions) == 0 {
		return printLine(w, "No missions today.")
	}
	for _, m := range missions {
		status := "in progress"
		switch {
		case m.Claimed:
			status = "claimed"
		case m.Completed:
			status = "ready to claim"
		}
		line := fmt.Sprintf("#%d  %-32s %d/%d  %s", m.ID, m.Title, min(m.Current, m.Target), m.Target, status)
		if err := printLine(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatReward(r model.Reward) string {
	if r.Type == model.RewardCoins {
		return fmt.Sprintf("Reward: %d coins (%s)", r.Amount, r.Rarity)
	}
	return fmt.Sprintf("Reward: %s card", r.Rarity)
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show lifetime progress",
		Args:  cobra.NoArgs,
		RunE:  runProfileCmd,
	}
}

func runProfileCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	deviceID, err := resolveDevice()
	if err != nil {
		return err
	}
	b, closeBackend, err := openBackend(fileCfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	p, err := backend.LoadOrCreate(ctx, b, deviceID)
	if err != nil {
		return err
	}
	a := arena.Effective(p.TotalXP, p.UnlockedArena, p.LastPlayedArena)
	lines := []string{
		"Device: " + p.DeviceID,
		fmt.Sprintf("Arena: #%d %s (boss: %s)", a.ID, a.Title, a.Boss),
		fmt.Sprintf("Boss HP: %.0f%%", arena.BossHP(p.TotalXP, a)),
		fmt.Sprintf("Unlocked: #%d of %d", p.UnlockedArena, len(arena.All())),
		fmt.Sprintf("Total XP: %d", p.TotalXP),
		fmt.Sprintf("High score: %d", p.HighScore),
		fmt.Sprintf("Games played: %d", p.GamesPlayed),
		fmt.Sprintf("Coins: %d", p.Coins),
	}
	for _, line := range lines {
		if err := printLine(cmd.OutOrStdout(), line); err != nil {
			return err
		}
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (default: XDG data dir)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(".env", config.DefaultEnvPath()); err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "db", &serveDB, fileCfg.Server.DB)
	if serveDB == "" {
		serveDB = config.DefaultDBPath()
	}

	logger := logging.Console(logLevel(fileCfg))
	secret := os.Getenv(config.EnvJWTSecret)
	if secret == "" {
		return fmt.Errorf("%s must be set", config.EnvJWTSecret)
	}
	st, err := store.Open(serveDB, store.WithSalt(missionSalt(fileCfg)))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("failed to close db")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httpapi.New(st, []byte(secret), logger)
	logger.Info().Str("addr", serveAddr).Str("db", serveDB).Msg("listening")
	if err := srv.ListenAndServe(ctx, serveAddr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info().Msg("server stopped")
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

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# chordarena configuration
# Uncomment a value to enable it. CLI flags override config values.

[play]
# device = "my-laptop"      # Device id (default: generated and stored in %s)
# start-seconds = %d        # Starting time in seconds (max %d)
# seed = 0                  # Random seed, 0 picks one per run
# backend = "http://localhost%s"  # Sync with a chordarena server instead of the local database

[stats]
# last = 0                  # Limit to last N sessions
# curve-window = %d         # Moving average window

[server]
# addr = %q
# db = "/var/lib/chordarena/chordarena.db"
# mission-salt = %q         # Secret mixed into the daily mission selection

[log]
# level = %q
# file = "/tmp/chordarena.log"
`,
		config.DefaultDevicePath(),
		session.DefaultStartSeconds,
		session.MaxSeconds,
		defaultAddr,
		defaultCurveWindow,
		defaultAddr,
		store.DefaultSalt,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.StartSeconds <= 0 {
		return fmt.Errorf("--start-seconds must be > 0")
	}
	if cfg.StartSeconds > session.MaxSeconds {
		return fmt.Errorf("--start-seconds must be <= %d", session.MaxSeconds)
	}
	if cfg.DeviceID == "" {
		return fmt.Errorf("--device must not be empty")
	}
	return nil
}

func printLine(w io.Writer, line string) error {
	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
