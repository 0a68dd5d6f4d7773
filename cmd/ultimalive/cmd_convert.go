package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/ultimalive/internal/uop"
)

var cmdConvert = &cobra.Command{
	Use:   "convert SRC.uop DST.mul",
	Short: "Flatten a UOP map container into a map file",
	Long: `
The "convert" command writes the entries of a map container in the order of
their synthetic names ("build/<container name>/<index>.dat"), producing the
legacy flat map file.
`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args[0], args[1])
	},
}

var cmdUOPSize = &cobra.Command{
	Use:               "uop-size SRC.uop",
	Short:             "Print the flattened size of a UOP container",
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := uop.UncompressedSize(args[0])
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var cmdHash = &cobra.Command{
	Use:   "hash NAME...",
	Short: "Print the container checksum of entry names",
	Long: `
The "hash" command prints the checksum UOP containers use to key an entry
path, e.g. "build/map0legacymul/00000000.dat".
`,
	Args:              cobra.MinimumNArgs(1),
	DisableAutoGenTag: true,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range args {
			fmt.Printf("%016x  %s\n", uop.HashFileName(name), name)
		}
	},
}

func init() {
	cmdRoot.AddCommand(cmdConvert, cmdUOPSize, cmdHash)
}

func runConvert(src, dst string) error {
	logger := newLogger(nil)
	x := uop.NewExtractor(logger)
	n, err := x.Convert(src, dst, func(pct uint32) {
		if pct%10 == 0 {
			logger.Info().Str("src", src).Uint32("percent", pct).Msg("converting")
		}
	})
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", n, dst)
	return nil
}
