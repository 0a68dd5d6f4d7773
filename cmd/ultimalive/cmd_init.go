package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/freeeve/ultimalive/internal/shard"
)

var cmdInit = &cobra.Command{
	Use:   "init",
	Short: "Prepare the map files of a shard",
	Long: `
The "init" command makes sure every configured map has map, statics and
statics index files in the shard directory. Existing shard maps are kept.
Missing ones are copied or converted from the game client when its map has
the configured dimensions, and created blank otherwise.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.Context(), initOptions)
	},
}

// InitOptions bundles all options for the init command.
type InitOptions struct {
	Concurrency int
}

var initOptions InitOptions

func init() {
	cmdRoot.AddCommand(cmdInit)

	f := cmdInit.Flags()
	f.IntVar(&initOptions.Concurrency, "concurrency", 2, "maps prepared at once (0 = all)")
}

func runInit(ctx context.Context, opts InitOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	p := shard.NewProvisioner(cfg,
		shard.WithLogger(logger),
		shard.WithConcurrency(opts.Concurrency),
		shard.WithProgress(logProgress(logger)),
	)
	results, err := p.Prepare(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("map %d: %s\n", r.Map, r.Action)
	}
	return nil
}

// logProgress logs copy progress in steps of ten percent.
func logProgress(logger zerolog.Logger) shard.ProgressFunc {
	return func(mapNumber int, file string, pct uint32) {
		if pct%10 != 0 {
			return
		}
		logger.Info().Int("map", mapNumber).Str("file", file).Uint32("percent", pct).Msg("copying")
	}
}
