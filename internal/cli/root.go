package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bristack",
	Short: "BriStack - human reach tracking and AI fidelity scoring for newsletters",
	Long: `BriStack measures who actually reads a newsletter.

It separates human readers from crawlers and AI agents in the interaction
log, promotes subscribers to verified humans once they complete enough
reads, and scores how much of an issue's key claims survive an AI
summary before it is published.

The fidelity score is advisory. It never blocks publishing.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bristack %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.bristack/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and BRISTACK_* variables
func initConfig() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".bristack"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps BRISTACK_SECTION_KEY variables onto section.key, plus the
// conventional variables that have no prefix
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("BRISTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("privacy.hash_secret", "BRISTACK_HASH_SECRET", "BRISTACK_PRIVACY_HASH_SECRET")
	_ = v.BindEnv("llm.api_key", "BRISTACK_LLM_API_KEY")
	_ = v.BindEnv("llm.base_url", "BRISTACK_LLM_BASE_URL")
	_ = v.BindEnv("llm.http_proxy", "BRISTACK_LLM_HTTP_PROXY")
	_ = v.BindEnv("llm.https_proxy", "BRISTACK_LLM_HTTPS_PROXY")
	_ = v.BindEnv("llm.no_proxy", "BRISTACK_LLM_NO_PROXY")
	_ = v.BindEnv("detection.signatures_file", "BRISTACK_DETECTION_SIGNATURES_FILE")
	_ = v.BindEnv("detection.extra_bot_patterns", "BRISTACK_DETECTION_EXTRA_BOT_PATTERNS")
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
