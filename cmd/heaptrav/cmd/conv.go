// ABOUTME: conv command: converts a walk log into the JSON document used by the analyses
// ABOUTME: Also holds the input helpers shared by the analysis commands

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prateek/heaptrav/dump"
)

var convOutput string

var convCmd = &cobra.Command{
	Use:   "conv LOG",
	Short: "Convert a walk log into a JSON document",
	Long: `conv reads a walk log ("-" for stdin) and writes a JSON document with
each closure's label and size, the roots, and the discovered edges.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInput(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer in.Close()

		doc, err := dump.Parse(in)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if convOutput != "" {
			f, err := os.Create(convOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if err := doc.WriteJSON(out); err != nil {
			return err
		}
		logger.Info("converted walk log",
			zap.Int("closures", len(doc.Infos)),
			zap.Int("roots", len(doc.Roots)),
			zap.Int("edges", len(doc.Edges)))
		return nil
	},
}

func init() {
	convCmd.Flags().StringVarP(&convOutput, "output", "o", "", "write the document to this file instead of stdout")
	rootCmd.AddCommand(convCmd)
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// loadDocument reads either a JSON document or a raw walk log.
func loadDocument(path string, stdin io.Reader) (*dump.Document, error) {
	in, err := openInput(path, stdin)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	br := bufio.NewReader(in)
	for {
		r, _, err := br.ReadRune()
		if err == io.EOF {
			return dump.NewDocument(), nil
		}
		if err != nil {
			return nil, err
		}
		if unicode.IsSpace(r) {
			continue
		}
		if err := br.UnreadRune(); err != nil {
			return nil, err
		}
		if r == '{' {
			return dump.ReadJSON(br)
		}
		return dump.Parse(br)
	}
}
