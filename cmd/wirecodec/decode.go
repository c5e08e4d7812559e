package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wirecodec/schemafile"
	"github.com/wippyai/wirecodec/wire"
)

var (
	decodeInput  string
	decodePretty bool
	decodeAll    bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE TYPE [HEX]",
	Short: "Decode bytes as a declared type",
	Long: `Decode one value of TYPE from HEX, from the file named by --input, or
from standard input when it is not a terminal.

Examples:
  wirecodec decode packets.yaml Packet "02 01 00 02 00 03 05 aa bb"
  wirecodec decode packets.yaml Packet --input capture.bin --all`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema(args[0])
		if err != nil {
			return err
		}
		data, err := decodeSource(cmd.InOrStdin(), args[2:])
		if err != nil {
			return err
		}
		pretty := decodePretty
		if !cmd.Flags().Changed("pretty") {
			pretty = isTerminal(os.Stdout)
		}
		return decodeValues(cmd.OutOrStdout(), s, args[1], data, pretty, decodeAll)
	},
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeInput, "input", "i", "", "read raw bytes from this file")
	decodeCmd.Flags().BoolVarP(&decodePretty, "pretty", "p", false, "print one field per line (default when writing to a terminal)")
	decodeCmd.Flags().BoolVarP(&decodeAll, "all", "a", false, "decode values until the input is exhausted")
	rootCmd.AddCommand(decodeCmd)
}

func decodeSource(stdin io.Reader, hexArgs []string) ([]byte, error) {
	switch {
	case len(hexArgs) > 0 && decodeInput != "":
		return nil, errors.New("give either HEX or --input, not both")
	case len(hexArgs) > 0:
		return parseHex(hexArgs[0])
	case decodeInput != "":
		return os.ReadFile(decodeInput)
	}
	if f, ok := stdin.(*os.File); ok && isTerminal(f) {
		return nil, errors.New("no input: give HEX, --input or pipe bytes to stdin")
	}
	return io.ReadAll(stdin)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// parseHex accepts hex digits with an optional 0x prefix. Whitespace,
// colons and dashes between bytes are ignored.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':', '-':
			return -1
		}
		return r
	}, s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse hex input: %w", err)
	}
	return b, nil
}

func decodeValues(out io.Writer, s *schemafile.Schema, typeName string, data []byte, pretty, all bool) error {
	r := wire.NewReader(data)
	for {
		start := r.Offset()
		v, err := s.Decode(r, typeName)
		if err != nil {
			return fmt.Errorf("at offset %d: %w", r.Offset(), err)
		}
		if pretty {
			fmt.Fprintln(out, v.Pretty())
		} else {
			fmt.Fprintln(out, v.String())
		}
		// zero-size values would never exhaust the input
		if !all || r.Remaining() == 0 || r.Offset() == start {
			break
		}
	}
	if n := r.Remaining(); n > 0 {
		fmt.Fprintf(out, "(%d trailing bytes)\n", n)
	}
	return nil
}
