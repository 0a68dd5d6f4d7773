package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/ultimalive/internal/store"
)

var cmdLand = &cobra.Command{
	Use:   "land",
	Short: "Read or replace a 196-byte land block",
}

var cmdLandGet = &cobra.Command{
	Use:               "get MAP BLOCK",
	Short:             "Write a land block to stdout",
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(args[0], func(s *store.Session) error {
			block, err := parseBlockNumber(args[1])
			if err != nil {
				return err
			}
			data, err := s.ReadLand(block)
			if err != nil {
				return err
			}
			return writeOutput(data)
		})
	},
}

var cmdLandPut = &cobra.Command{
	Use:               "put MAP BLOCK [FILE]",
	Short:             "Replace a land block with FILE (or stdin)",
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
			if err := s.WriteLand(block, data); err != nil {
				return err
			}
			fmt.Printf("block %d: land replaced\n", block)
			return nil
		})
	},
}

func init() {
	cmdRoot.AddCommand(cmdLand)
	cmdLand.AddCommand(cmdLandGet, cmdLandPut)

	cmdLand.PersistentFlags().BoolVar(&ioOptions.Hex, "hex", false, "hex-encode payloads")
}
