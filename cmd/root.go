package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rebootlabs/mastery/internal/config"
	"github.com/rebootlabs/mastery/internal/engine"
	"github.com/rebootlabs/mastery/internal/llm"
	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/notify"
	"github.com/rebootlabs/mastery/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "mastery",
	Short:         "Mastery and review scheduling engine",
	Long:          "mastery detects weak zones in live sessions, scores skill mastery, schedules spaced reviews, and builds review routes.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides MASTERY_DB env var)")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(pulseCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(formativeCmd)
	rootCmd.AddCommand(masteryCmd)
	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(suggestionCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then MASTERY_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// runtime holds everything a command needs for one invocation.
type runtime struct {
	cfg    config.Config
	log    *logger.Logger
	store  *store.Store
	bus    *notify.Bus
	engine *engine.Engine
}

// openRuntime loads config, opens the store, and wires the engine. The
// LLM provider and the Redis bus are optional.
func openRuntime(cmd *cobra.Command) (*runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt := &runtime{cfg: cfg, log: log, store: st}

	var pub notify.Publisher = notify.Nop{}
	if cfg.RedisURL != "" {
		bus, err := notify.NewBus(ctx, cfg.RedisURL, cfg.RedisChannel, log)
		if err != nil {
			log.Warn("event bus unavailable", "error", err)
		} else {
			rt.bus = bus
			pub = bus
		}
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
	if err != nil {
		log.Warn("LLM provider not configured, using fallback supplements", "error", err)
		provider = nil
	}

	eng, err := engine.New(engine.Options{
		Store:     st,
		Provider:  provider,
		Publisher: pub,
		Policy:    &cfg.Policy,
		Logger:    log,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.engine = eng
	return rt, nil
}

// Close drains enrichment and releases the store and bus.
func (rt *runtime) Close() {
	if rt.engine != nil {
		rt.engine.Close()
	}
	if rt.bus != nil {
		_ = rt.bus.Close()
	}
	_ = rt.store.Close()
	rt.log.Sync()
}

// withEngine runs fn against a freshly opened runtime.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, rt)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSONFile decodes a JSON file into v.
func readJSONFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func mustFlag(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		_ = cmd.MarkFlagRequired(n)
	}
}
