package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/config"
	"github.com/mgpai22/trimsub/internal/logging"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "trimsub",
	Short: "Keep subtitles in sync after cutting a recording",
	Long: `trimsub removes unwanted ranges from a recording and rewrites its
SRT subtitles so every cue lines up with the shortened timeline.

Cut ranges can come from a JSON file or be proposed by an LLM provider
(Gemini, OpenAI or Anthropic). Transcription, correction and chapter
generation are available as separate commands or chained by "edit".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		loaded, path, exists, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if verbose {
			logger = logging.NewLogger(true)
		} else {
			logger = logging.NewWithLevel(cfg.Logging.Level)
		}
		if exists {
			logger.Debugw("Loaded config", "path", path)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command. Interrupts cancel the command's context so
// ffmpeg and in-flight LLM requests are stopped.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("language", "l", "", "Language code (e.g., en, es, fr)")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", fmt.Sprintf("Config file (default %s or ./trimsub.toml)", "~/.config/trimsub/config.toml"))
}
