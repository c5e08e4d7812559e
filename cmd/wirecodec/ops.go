package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var opsCmd = &cobra.Command{
	Use:   "ops FILE [TYPE...]",
	Short: "Print the derived decode and encode programs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema(args[0])
		if err != nil {
			return err
		}
		types, err := selectTypes(s, args[1:])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, t := range types {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprint(out, t.Listing())
		}
		return nil
	},
}

var sizeCmd = &cobra.Command{
	Use:   "size FILE [TYPE...]",
	Short: "Print minimum encoded sizes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema(args[0])
		if err != nil {
			return err
		}
		types, err := selectTypes(s, args[1:])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, t := range types {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", t.Name, t.Kind, t.MinSize)
		}
		return tw.Flush()
	},
}

var fingerprintShort bool

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint FILE [TYPE...]",
	Short: "Print layout fingerprints of records and enums",
	Long: `Print a hash of each type's wire layout. Two types share a fingerprint
exactly when they read and write the same bytes, whatever their names.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema(args[0])
		if err != nil {
			return err
		}
		types, err := selectTypes(s, args[1:])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, t := range types {
			fp, err := t.Fingerprint()
			if err != nil {
				// opaque types have no layout of their own
				if len(args) == 1 {
					continue
				}
				return err
			}
			sum := fp.String()
			if fingerprintShort {
				sum = fp.Short()
			}
			fmt.Fprintf(tw, "%s\t%s\n", t.Name, sum)
		}
		return tw.Flush()
	},
}

func init() {
	fingerprintCmd.Flags().BoolVarP(&fingerprintShort, "short", "s", false, "print abbreviated fingerprints")
	rootCmd.AddCommand(opsCmd, sizeCmd, fingerprintCmd)
}
