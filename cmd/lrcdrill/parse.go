package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nadzzz/lrcdrill/internal/lyrics"
	"github.com/nadzzz/lrcdrill/internal/pipeline"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.lrc>",
	Short: "Print the timed lines of an LRC file",
	Long:  "Parse an LRC transcript and print every line with its derived start and end, as the build command would cut them.",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var (
	parseJSON bool
	parseMax  int
)

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print JSON instead of a table")
	parseCmd.Flags().IntVarP(&parseMax, "max", "m", 0, "print only the first N lines (0 = all)")
}

func runParse(cmd *cobra.Command, args []string) error {
	tr, err := lyrics.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInputNotFound, err)
	}
	tr.Lines = lyrics.Truncate(tr.Lines, parseMax)

	out := cmd.OutOrStdout()
	if parseJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tr)
	}

	if tr.Title != "" || tr.Artist != "" {
		fmt.Fprintf(out, "%s - %s\n\n", tr.Artist, tr.Title)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tTEXT\tTRANSLATION")
	for i, l := range tr.Lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, lyrics.FormatTimestamp(l.Start), lyrics.FormatTimestamp(l.End), l.Text, l.Translation)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d line(s)\n", len(tr.Lines))
	return nil
}
