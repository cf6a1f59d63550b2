package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
)

// PrintMetrics writes the counters collected by the last command. It prints
// nothing when no command wired the component graph.
func PrintMetrics(out io.Writer) error {
	if current == nil {
		return nil
	}
	samples, err := current.Metrics.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	tabWriter := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "METRIC\tLABELS\tVALUE")
	for _, s := range samples {
		labels := make([]string, 0, len(s.Labels))
		for _, k := range slices.Sorted(maps.Keys(s.Labels)) {
			labels = append(labels, k+"="+s.Labels[k])
		}
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%g\n", s.Name, strings.Join(labels, ","), s.Value)
	}
	return tabWriter.Flush()
}
