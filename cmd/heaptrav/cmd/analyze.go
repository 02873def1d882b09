// ABOUTME: Analysis commands over a walk document: retainers, reach, retained, paths and hist
// ABOUTME: Each accepts a JSON document or a raw walk log and prints a table or tree

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/prateek/heaptrav/graph"
	"github.com/prateek/heaptrav/heap"
)

var (
	retainersDepth int
	reachThreshold int
	retainedTop    int
	pathsMax       int
	histogramTop   int
)

var retainersCmd = &cobra.Command{
	Use:   "retainers DOC LABEL",
	Short: "Print the referrers of every closure with the given label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd, args[0])
		if err != nil {
			return err
		}
		for _, r := range graph.Retainers(g, args[1], retainersDepth) {
			printRetainer(cmd.OutOrStdout(), r, 0)
		}
		return nil
	},
}

var reachCmd = &cobra.Command{
	Use:   "reach DOC LABEL",
	Short: "Find closures that reach many closures with the given label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd, args[0])
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"closure", "label", "depth", "targets", "per reference"})
		for _, hit := range graph.ReachSearch(g, args[1], reachThreshold) {
			table.Append([]string{
				hit.Addr.String(),
				label(g, hit.Addr),
				strconv.Itoa(hit.Depth()),
				strconv.Itoa(hit.Targets),
				perRef(hit),
			})
		}
		table.Render()
		return nil
	},
}

var retainedCmd = &cobra.Command{
	Use:   "retained DOC",
	Short: "List the closures retaining the most bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd, args[0])
		if err != nil {
			return err
		}
		sizes := graph.RetainedSize(g)
		addrs := make([]heap.Addr, 0, len(sizes))
		for a := range sizes {
			addrs = append(addrs, a)
		}
		sort.Slice(addrs, func(i, j int) bool {
			if sizes[addrs[i]] != sizes[addrs[j]] {
				return sizes[addrs[i]] > sizes[addrs[j]]
			}
			return addrs[i] < addrs[j]
		})
		if retainedTop > 0 && len(addrs) > retainedTop {
			addrs = addrs[:retainedTop]
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"closure", "label", "size", "retained"})
		for _, a := range addrs {
			var size uint64
			if n := g.Node(a); n != nil {
				size = n.Size
			}
			table.Append([]string{
				a.String(),
				label(g, a),
				strconv.FormatUint(size, 10),
				strconv.FormatUint(sizes[a], 10),
			})
		}
		table.Render()
		return nil
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths DOC ADDR",
	Short: "Print reference chains from a closure back to the roots",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd, args[0])
		if err != nil {
			return err
		}
		a, err := heap.ParseAddr(args[1])
		if err != nil {
			return err
		}
		if g.Node(a) == nil {
			return fmt.Errorf("closure %s is not in the document", a)
		}
		paths := graph.PathsToRoots(g, a, pathsMax)
		if len(paths) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not reachable from any root\n", a)
			return nil
		}
		for i, p := range paths {
			steps := make([]string, len(p.Addrs))
			for j, s := range p.Addrs {
				steps[j] = fmt.Sprintf("%s(%s)", s, label(g, s))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i+1, strings.Join(steps, " <- "))
		}
		return nil
	},
}

var histogramCmd = &cobra.Command{
	Use:     "hist DOC",
	Aliases: []string{"histogram"},
	Short:   "Summarise closures by label",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd, args[0])
		if err != nil {
			return err
		}
		stats := graph.Histogram(g)
		if histogramTop > 0 && len(stats) > histogramTop {
			stats = stats[:histogramTop]
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"label", "count", "bytes"})
		for _, s := range stats {
			table.Append([]string{s.Info, strconv.Itoa(s.Count), strconv.FormatUint(s.Bytes, 10)})
		}
		table.Render()
		return nil
	},
}

func init() {
	retainersCmd.Flags().IntVar(&retainersDepth, "depth", graph.DefaultRetainerDepth, "referrer levels to print")
	reachCmd.Flags().IntVar(&reachThreshold, "threshold", graph.DefaultReachThreshold, "targets a closure must reach to be reported")
	retainedCmd.Flags().IntVar(&retainedTop, "top", 20, "closures to list, 0 for all")
	pathsCmd.Flags().IntVar(&pathsMax, "max", 5, "paths to print")
	histogramCmd.Flags().IntVar(&histogramTop, "top", 0, "labels to list, 0 for all")

	rootCmd.AddCommand(retainersCmd, reachCmd, retainedCmd, pathsCmd, histogramCmd)
}

func loadGraph(cmd *cobra.Command, path string) (*graph.MemGraph, error) {
	doc, err := loadDocument(path, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return graph.FromDocument(doc), nil
}

func label(g graph.Graph, a heap.Addr) string {
	if n := g.Node(a); n != nil {
		return n.Info
	}
	return graph.UnknownInfo
}

func printRetainer(w io.Writer, r graph.Retainer, level int) {
	fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", level), r.Addr, r.Info)
	for _, by := range r.By {
		printRetainer(w, by, level+1)
	}
}

func perRef(hit graph.ReachHit) string {
	parts := make([]string, 0, len(hit.Refs))
	for i, ref := range hit.Refs {
		parts = append(parts, fmt.Sprintf("%s:%d", ref, hit.PerRef[i]))
	}
	return strings.Join(parts, " ")
}
