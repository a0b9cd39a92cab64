package snap

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcal-snap/internal/app"
	"github.com/saadjs/kcal-snap/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "kcal-snap",
	Short:         "kcal-snap logs meals from photos and tracks daily calories",
	Long:          "kcal-snap is a session-scoped nutrition tracker: log meals by photo analysis or by hand, see today's totals against your TDEE, and keep a weight trend.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: user config dir)")
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	if env := os.Getenv("KCAL_SNAP_CONFIG"); env != "" {
		return env, nil
	}
	return app.DefaultConfigPath()
}

// withApp loads the config, builds the app with logs going to logOut and
// runs fn.
func withApp(ctx context.Context, logOut io.Writer, fn func(*app.App) error) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	logger := app.NewLogger(logOut, cfg.App.LogLevel)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
