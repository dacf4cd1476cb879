package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finsight-ai/finsight/internal/model"
)

var (
	analyzeQuery       string
	analyzeUser        string
	analyzeConcurrency int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Analyze one or more financial documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return analyzeFiles(ctx, env, args, analyzeQuery, analyzeUser, analyzeConcurrency)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "Provide a comprehensive financial analysis", "analysis question")
	analyzeCmd.Flags().StringVarP(&analyzeUser, "user", "u", "cli", "user id to record against the analysis")
	analyzeCmd.Flags().IntVarP(&analyzeConcurrency, "concurrency", "c", 2, "documents analyzed in parallel")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzeFiles registers each file as a document and runs the pipeline on
// them with bounded parallelism. A failed file does not stop the others;
// the command fails if any file failed.
func analyzeFiles(ctx context.Context, env *Env, paths []string, query, userID string, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range paths {
		g.Go(func() error {
			if err := analyzeOne(gctx, env, path, query, userID); err != nil {
				failed.Add(1)
				zap.L().Error("analysis failed",
					zap.String("file", path),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := failed.Load(); n > 0 {
		return eris.Errorf("%d of %d documents failed", n, len(paths))
	}
	return nil
}

func analyzeOne(ctx context.Context, env *Env, path, query, userID string) error {
	info, err := os.Stat(path)
	if err != nil {
		return eris.Wrapf(err, "stat %s", path)
	}

	doc := &model.Document{
		OriginalFilename: filepath.Base(path),
		Filename:         filepath.Base(path),
		FilePath:         path,
		FileSize:         info.Size(),
		ContentType:      contentTypeForExt(filepath.Ext(path)),
		UploadedBy:       userID,
	}
	if err := env.Store.CreateDocument(ctx, doc); err != nil {
		return err
	}
	if err := env.Store.UpdateDocumentStatus(ctx, doc.ID, model.DocumentStatusProcessing, nil, ""); err != nil {
		return err
	}

	rec, err := env.Pipeline.Run(ctx, query, path, userID, doc.ID)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(rec.Results, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal results")
	}
	fmt.Printf("=== %s (analysis %s) ===\n%s\n", doc.OriginalFilename, rec.ID, out)
	return nil
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
