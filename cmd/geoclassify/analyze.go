package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/geo-classifier/internal/application/analysis"
	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
)

// analyzer is the part of analysis.Service the CLI drives.
type analyzer interface {
	AnalyzeText(ctx context.Context, cmd analysis.AnalyzeTextCommand) (*geo.Analysis, error)
	AnalyzeDocument(ctx context.Context, cmd analysis.AnalyzeDocumentCommand) (*geo.Analysis, error)
}

type analyzeOptions struct {
	file   string
	text   string
	raw    bool
	render bool
	asJSON bool
}

func newAnalyzeCmd(build func() (analyzer, error)) *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify the geographic areas in text or a document",
		Example: `  geoclassify analyze --text "Road closures in Shadyside and Oakland"
  geoclassify analyze --file notes.docx --json
  cat article.md | geoclassify analyze --raw --render`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.file != "" && opts.text != "" {
				return errors.New("use either --file or --text, not both")
			}
			svc, err := build()
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), svc, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read input from a .txt, .md, .docx or .html file")
	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "text to analyze (default: read stdin)")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the raw markdown answer")
	cmd.Flags().BoolVar(&opts.render, "render", false, "render markdown for the terminal")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	return cmd
}

func runAnalyze(ctx context.Context, svc analyzer, opts analyzeOptions, stdin io.Reader, out io.Writer) error {
	var (
		a   *geo.Analysis
		err error
	)
	switch {
	case opts.file != "":
		data, rerr := os.ReadFile(opts.file)
		if rerr != nil {
			return geo.NewAnalysisError(geo.MsgReadFailed, fmt.Errorf("%w: %v", geo.ErrFileRead, rerr))
		}
		a, err = svc.AnalyzeDocument(ctx, analysis.AnalyzeDocumentCommand{
			Filename:    filepath.Base(opts.file),
			ContentType: mime.TypeByExtension(filepath.Ext(opts.file)),
			Data:        data,
		})
	default:
		text := opts.text
		if text == "" {
			b, rerr := io.ReadAll(stdin)
			if rerr != nil {
				return fmt.Errorf("reading stdin: %w", rerr)
			}
			text = string(b)
		}
		a, err = svc.AnalyzeText(ctx, analysis.AnalyzeTextCommand{Text: text})
	}
	if err != nil {
		return err
	}

	result := a.Result
	if !opts.raw {
		result.RawMarkdown = ""
	}

	switch {
	case opts.asJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case opts.raw:
		return printMarkdown(out, result.RawMarkdown, opts.render)
	default:
		return printMarkdown(out, summaryMarkdown(result), opts.render)
	}
}

func printMarkdown(out io.Writer, md string, render bool) error {
	if render {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return err
		}
		rendered, err := r.Render(md)
		if err != nil {
			return err
		}
		md = rendered
	}
	_, err := io.WriteString(out, strings.TrimRight(md, "\n")+"\n")
	return err
}

// summaryMarkdown rebuilds a compact report from the parsed result.
func summaryMarkdown(r geo.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Scope:** %s\n\n", orDash(r.Scope))
	if len(r.Areas) == 0 {
		b.WriteString("No areas identified.\n\n")
	} else {
		b.WriteString("| Area | Region | Context |\n|---|---|---|\n")
		for _, a := range r.Areas {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", a.Name, a.Region, a.Context)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**Summary:** %s\n\n", orDash(r.Summary))
	fmt.Fprintf(&b, "**Confidence:** %s\n", orDash(r.Confidence))
	if r.Notes != "" {
		fmt.Fprintf(&b, "\n**Notes:** %s\n", r.Notes)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
