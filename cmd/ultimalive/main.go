package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/freeeve/ultimalive/internal/config"
	"github.com/freeeve/ultimalive/internal/logx"
)

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "ultimalive",
	Short: "Manage per-shard map files and client map containers",
	Long: `
ultimalive maintains the per-shard copies of a client's map, statics and
statics index files, seeds them from a game client install, and flattens
UOP map containers into the legacy map layout.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

// GlobalOptions hold options that apply to every command.
type GlobalOptions struct {
	ConfigFile string
	LogLevel   string
	Shard      string
	SavePath   string
	ClientPath string
	NoSync     bool
}

var globalOptions GlobalOptions

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVarP(&globalOptions.ConfigFile, "config", "c", "ultimalive.yaml", "config file")
	f.StringVar(&globalOptions.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	f.StringVar(&globalOptions.Shard, "shard", "", "shard identifier; overrides the config")
	f.StringVar(&globalOptions.SavePath, "save-path", "", "directory holding shard directories; overrides the config")
	f.StringVar(&globalOptions.ClientPath, "client-path", "", "game client directory; overrides the config")
	f.BoolVar(&globalOptions.NoSync, "no-sync", false, "skip fsync after each write")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalOptions.ConfigFile)
	if err != nil {
		return nil, err
	}
	if globalOptions.LogLevel != "" {
		cfg.LogLevel = globalOptions.LogLevel
	}
	if globalOptions.Shard != "" {
		cfg.Shard = globalOptions.Shard
	}
	if globalOptions.SavePath != "" {
		cfg.SavePath = globalOptions.SavePath
	}
	if globalOptions.ClientPath != "" {
		cfg.ClientPath = globalOptions.ClientPath
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := globalOptions.LogLevel
	if cfg != nil && level == "" {
		level = cfg.LogLevel
	}
	return logx.NewLogger(level)
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
