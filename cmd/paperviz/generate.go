// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/paperviz/internal/archive"
	"github.com/pdiddy/paperviz/internal/export"
	"github.com/pdiddy/paperviz/internal/generate"
	"github.com/pdiddy/paperviz/internal/ingest"
	"github.com/pdiddy/paperviz/internal/request"
	"github.com/pdiddy/paperviz/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate [files...]",
	Short: "Generate one document from paper text or a PDF",
	Long: `Generate reads the given files (Markdown, plain text, a PDF, or an image)
plus any --text, asks the model for the selected document kind, and writes
the result. The streamed answer is echoed to stderr while it arrives.

Kinds: slides, poster, diagram, citation-map, analysis.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	kindStr, _ := cmd.Flags().GetString("kind")
	text, _ := cmd.Flags().GetString("text")
	reasoning, _ := cmd.Flags().GetBool("reasoning")
	outPath, _ := cmd.Flags().GetString("out")
	formatStr, _ := cmd.Flags().GetString("format")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noArchive, _ := cmd.Flags().GetBool("no-archive")

	kind, err := types.ParseOutputKind(kindStr)
	if err != nil {
		return err
	}
	format, err := outputFormat(formatStr, outPath)
	if err != nil {
		return err
	}

	var inputs []*ingest.Input
	for _, path := range args {
		in, err := ingest.File(path)
		if err != nil {
			return err
		}
		if in.Pages > 0 {
			fmt.Fprintf(os.Stderr, "Attached %s (%d pages)\n", path, in.Pages)
		}
		inputs = append(inputs, in)
	}
	merged, att, err := ingest.Merge(inputs, text)
	if err != nil {
		return err
	}
	req := types.GenerationRequest{Text: merged, Attachment: att, Kind: kind, UseReasoning: reasoning}

	cfg := loadConfig()
	if cmd.Flags().Changed("timeout") {
		cfg.Generation.Timeout = timeout
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Generation.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Generation.Timeout)
		defer cancel()
	}

	service, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	builder := request.NewBuilder(cfg.Generation)
	gen := generate.New(service, generate.WithLogger(logger), generate.WithBuilder(builder))

	var echo io.Writer = os.Stderr
	if quiet {
		echo = io.Discard
	}
	start := time.Now()
	doc, genErr := gen.Generate(ctx, req, echoProgress(echo))
	fmt.Fprintln(echo)
	elapsed := time.Since(start)

	if cfg.Archive.Enabled && !noArchive {
		model := cfg.Generation.WithDefaults().FastModel
		if reasoning {
			model = cfg.Generation.WithDefaults().ReasoningModel
		}
		archiveGeneration(logger, cfg.Archive, req, model, doc, genErr, elapsed)
	}

	if genErr != nil {
		var gerr *generate.Error
		if errors.As(genErr, &gerr) {
			fmt.Fprintln(os.Stderr, gerr.UserMessage())
		}
		return genErr
	}

	if outPath == "" {
		return export.Write(os.Stdout, doc, format)
	}
	if err := writeDocument(outPath, doc, format); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%s, %s)\n", outPath, kind.Flag(), elapsed.Round(time.Millisecond))
	return nil
}

// echoProgress writes the newly streamed suffix of each transcript to w.
func echoProgress(w io.Writer) generate.ProgressFunc {
	prev := ""
	return func(transcript string) {
		if strings.HasPrefix(transcript, prev) {
			io.WriteString(w, transcript[len(prev):]) //nolint:errcheck
		} else {
			io.WriteString(w, "\n"+transcript) //nolint:errcheck
		}
		prev = transcript
	}
}

// outputFormat resolves the format flag, falling back to the output file's
// extension and then to JSON.
func outputFormat(flag, outPath string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if ext := filepath.Ext(outPath); ext != "" {
		return export.ParseFormat(ext)
	}
	return export.FormatJSON, nil
}

func writeDocument(path string, doc *types.Document, format export.Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.Write(f, doc, format); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// archiveGeneration records the attempt. Archive failures are logged and do
// not fail the command.
func archiveGeneration(logger *zap.Logger, cfg types.ArchiveConfig, req types.GenerationRequest,
	model string, doc *types.Document, genErr error, elapsed time.Duration) {
	store, err := archive.NewStore(cfg)
	if err != nil {
		logger.Warn("archive unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	rec := &archive.Record{
		Kind:         req.Kind,
		Model:        model,
		UseReasoning: req.UseReasoning,
		Input:        req.Text,
		Outcome:      string(generate.OutcomeOf(genErr)),
		Document:     doc,
		Elapsed:      elapsed,
	}
	if req.Attachment != nil {
		rec.Attachment = req.Attachment.MIMEType
	}
	if genErr != nil {
		rec.Error = genErr.Error()
		var gerr *generate.Error
		if errors.As(genErr, &gerr) {
			rec.Raw = gerr.Raw
		}
	}
	if err := store.Save(context.Background(), rec); err != nil {
		logger.Warn("archiving generation", zap.Error(err))
		return
	}
	logger.Debug("archived generation", zap.String("id", rec.ID))
}

func init() {
	generateCmd.Flags().String("kind", "slides", "output kind: slides, poster, diagram, citation-map, analysis")
	generateCmd.Flags().String("text", "", "content or instructions, combined with any files")
	generateCmd.Flags().Bool("reasoning", false, "use the reasoning model with the configured thinking budget")
	generateCmd.Flags().StringP("out", "o", "", "output file (default: stdout)")
	generateCmd.Flags().String("format", "", "output format: json, yaml, markdown, html, pdf (default: from --out, else json)")
	generateCmd.Flags().Duration("timeout", 0, "overall generation timeout (0 = none)")
	generateCmd.Flags().BoolP("quiet", "q", false, "do not echo the stream to stderr")
	generateCmd.Flags().Bool("no-archive", false, "do not record this generation in the archive")

	rootCmd.AddCommand(generateCmd)
}
