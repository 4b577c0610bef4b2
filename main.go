// Package main provides the entry point for the dubsync CLI application.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/ui"
)

const appName = "dubsync"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	style      string
	width      uint
	cfg        dub.Config
	uiConfig   ui.Config
	logCloser  = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Fit dubbed dialogue into its subtitle timing",
		Long: paragraph(
			fmt.Sprintf("\nMeasure how long each dubbed line takes to speak and %s.", keyword("fit it into its window")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var err error
	if cfg, err = dub.LoadConfigFromViper(); err != nil {
		return err
	}

	if logCloser, err = setupLog(); err != nil {
		return err
	}

	// read terminal settings from the environment
	if uiConfig, err = env.ParseAs[ui.Config](); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	// validate the glamour style
	style = viper.GetString("style")
	if err := ui.ValidateStyle(style); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// We want to use a special no-TTY style, when stdout is not a terminal
	// and there was no specific style passed by arg
	if !isTerminal && !cmd.Flags().Changed("style") {
		style = "notty"
	}
	uiConfig.GlamourStyle = style

	// Detect terminal width
	if !cmd.Flags().Changed("width") {
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}

			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	uiConfig.Width = width

	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = logCloser()
	if err != nil {
		if errors.Is(err, dub.ErrCanceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path")
	flags.UintVarP(&width, "width", "w", 0, "word-wrap at width")
	flags.StringP("engine", "e", "", "speech engine (mock or piper)")
	flags.Int("trials", 0, "measurement trials per line")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	// Config bindings
	_ = viper.BindPFlag("style", flags.Lookup("style"))
	_ = viper.BindPFlag("width", flags.Lookup("width"))
	_ = viper.BindPFlag("engine", flags.Lookup("engine"))
	_ = viper.BindPFlag("sync.trials", flags.Lookup("trials"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)
	dub.SetDefaults()

	rootCmd.AddCommand(
		quickCmd,
		syncCmd,
		reportCmd,
		linesCmd,
		previewCmd,
		exportCmd,
		watchCmd,
		configCmd,
		manCmd,
	)
}

func tryLoadConfigFromDefaultPlaces() {
	// DUBSYNC_* overrides may live in a .env file next to the project
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Could not load .env file", "err", err)
	}

	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("DUBSYNC_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], appName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
