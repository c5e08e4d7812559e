package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/wirecodec/codec"
	"github.com/wippyai/wirecodec/schemafile"
)

var (
	verbose   bool
	maxLength int
	logger    = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "wirecodec",
	Short: "Check, inspect and decode binary wire declarations",
	Long: `wirecodec analyzes declaration files (YAML, TOML or JSONC) describing
binary record and enum layouts, and decodes raw bytes against them.

Examples:
  wirecodec check packets.yaml
  wirecodec ops packets.yaml Packet
  wirecodec decode packets.yaml Packet 0201000200
  wirecodec inspect packets.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		logger = l
		codec.SetLogger(l)
		return nil
	},
}

func init() {
	globalFlags(rootCmd.PersistentFlags())
}

func globalFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&verbose, "verbose", "v", false, "log analysis details to stderr")
	fs.IntVar(&maxLength, "max-length", codec.DefaultMaxLength, "largest element count accepted for any length")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSchema loads and analyzes one declaration file.
func loadSchema(path string) (*schemafile.Schema, error) {
	f, err := schemafile.Load(path)
	if err != nil {
		return nil, err
	}
	return schemafile.Analyze(f,
		schemafile.WithLogger(logger),
		schemafile.WithMaxLength(maxLength))
}

// selectTypes returns the named types, or every type when names is empty.
func selectTypes(s *schemafile.Schema, names []string) ([]*schemafile.TypeInfo, error) {
	if len(names) == 0 {
		return s.Types(), nil
	}
	out := make([]*schemafile.TypeInfo, 0, len(names))
	for _, name := range names {
		t, ok := s.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("type %q is not declared in %s", name, s.File.Path)
		}
		out = append(out, t)
	}
	return out, nil
}
