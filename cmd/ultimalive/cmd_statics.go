package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freeeve/ultimalive/internal/store"
)

var cmdStatics = &cobra.Command{
	Use:   "statics",
	Short: "Read or replace the statics of a block",
}

var cmdStaticsGet = &cobra.Command{
	Use:               "get MAP BLOCK",
	Short:             "Write the statics payload of a block to stdout",
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(args[0], func(s *store.Session) error {
			block, err := parseBlockNumber(args[1])
			if err != nil {
				return err
			}
			data, ok := s.ReadStatics(block)
			if !ok {
				return fmt.Errorf("block %d has no statics", block)
			}
			return writeOutput(data)
		})
	},
}

var cmdStaticsPut = &cobra.Command{
	Use:   "put MAP BLOCK [FILE]",
	Short: "Replace the statics payload of a block",
	Long: `
The "statics put" command stores FILE (or stdin) as the statics of BLOCK. An
empty input clears the block.
`,
	Args:              cobra.RangeArgs(2, 3),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(args[0], func(s *store.Session) error {
			block, err := parseBlockNumber(args[1])
			if err != nil {
				return err
			}
			data, err := readInput(args[2:])
			if err != nil {
				return err
			}
			if err := s.WriteStatics(block, data); err != nil {
				return err
			}
			st := s.Stats()
			fmt.Printf("block %d: %d bytes (pool %d of %d bytes)\n", block, len(data), st.PoolBytes, st.PoolCapacity)
			return nil
		})
	},
}

// IOOptions control how payloads are read and printed.
type IOOptions struct {
	Hex bool
}

var ioOptions IOOptions

func init() {
	cmdRoot.AddCommand(cmdStatics)
	cmdStatics.AddCommand(cmdStaticsGet, cmdStaticsPut)

	cmdStatics.PersistentFlags().BoolVar(&ioOptions.Hex, "hex", false, "hex-encode payloads")
}

// withSession opens the shard session of the map named by arg for fn.
func withSession(arg string, fn func(*store.Session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	mapNumber, err := parseMapNumber(arg)
	if err != nil {
		return err
	}

	s, err := store.OpenSession(cfg.ShardDir(), mapNumber, store.Options{
		StaticsCapacity: cfg.StaticsCapacity,
		NoSync:          globalOptions.NoSync,
		Logger:          &logger,
	})
	if err != nil {
		return err
	}
	err = fn(s)
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func writeOutput(data []byte) error {
	if ioOptions.Hex {
		_, err := fmt.Println(hex.EncodeToString(data))
		return err
	}
	_, err := os.Stdout.Write(data)
	return err
}

func readInput(args []string) ([]byte, error) {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, err
	}
	if ioOptions.Hex {
		return hex.DecodeString(strings.TrimSpace(string(data)))
	}
	return data, nil
}
