package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nadzzz/lrcdrill/internal/tts"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List language tags with a known display name",
	Long:  "Other tags are accepted too; they are passed to the speech provider verbatim.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TAG\tLANGUAGE")
		for _, l := range tts.Languages() {
			fmt.Fprintf(tw, "%s\t%s\n", l.Tag, l.Name)
		}
		return tw.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lrcdrill %s\n", version)
	},
}
