package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/ingest"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/pipeline"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Ingest manual PDFs (and scanned images) into the vector index",
	Long: `Ingest manual PDFs into the vector index.

Pages with too little embedded text are treated as scans: they are rendered
and OCR'd, and the longer extraction wins. Standalone image files are OCR'd
whole. Failing documents are skipped, not fatal.

Examples:
  manualqa ingest ./data/manuals
  manualqa ingest ./data/manuals --no-ocr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noOCR, _ := cmd.Flags().GetBool("no-ocr")

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		var renderer ingest.Renderer
		var recognizer ingest.Recognizer
		if !noOCR {
			renderer = ingest.FitzRenderer{}
			recognizer = ingest.TesseractRecognizer{Language: a.cfg.Ingest.OCRLanguage}
		}

		extractor := ingest.NewExtractor(a.cfg.Ingest.MinPageTextLen, renderer, recognizer)
		splitter := ingest.NewSplitter(a.cfg.Ingest.ChunkSize, a.cfg.Ingest.ChunkOverlap)
		counter, err := ingest.NewTokenCounter()
		if err != nil {
			return fmt.Errorf("initializing token counter: %w", err)
		}

		ingestor := ingest.NewIngestor(extractor, recognizer, splitter, counter,
			a.embedder, a.manuals, a.cfg.Ingest.MaxTokensPerBatch)

		paths, err := ingestor.Discover(args[0])
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			printWarning("no ingestible files under %s", args[0])
			return nil
		}

		printStep("Ingesting %d documents from %s", len(paths), args[0])
		bar := progressbar.Default(int64(len(paths)), "ingesting")

		var stats ingest.Stats
		for _, path := range paths {
			chunks, err := ingestor.IngestFile(cmd.Context(), path)
			if err != nil {
				printWarning("skipping %s: %v", path, err)
				stats.Skipped++
			} else {
				stats.Documents++
				stats.Chunks += chunks
			}
			bar.Add(1)
		}

		printSuccess("Ingested %d documents (%d chunks, %d skipped)",
			stats.Documents, stats.Chunks, stats.Skipped)
		return nil
	},
}

func init() {
	ingestCmd.Flags().Bool("no-ocr", false, "disable the OCR fallback for scanned pages")
}

// --- index-images ---

var indexImagesCmd = &cobra.Command{
	Use:   "index-images <dir>",
	Short: "Index catalog product images for photo-based identification",
	Long: `Index catalog product images for photo-based identification.

Each image is embedded and stored under its filename-derived label, e.g.
아가사랑_3kg_WA30DG2120EE.png indexes the label 아가사랑_3kg_WA30DG2120EE.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		indexer := ingest.NewImageIndexer(a.imageEmb, a.catalog)
		paths, err := indexer.Discover(args[0])
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			printWarning("no images under %s", args[0])
			return nil
		}

		printStep("Indexing %d catalog images from %s", len(paths), args[0])
		bar := progressbar.Default(int64(len(paths)), "indexing")

		indexed := 0
		for _, path := range paths {
			if err := indexer.IndexImage(cmd.Context(), path); err != nil {
				printWarning("skipping %s: %v", path, err)
			} else {
				indexed++
			}
			bar.Add(1)
		}

		printSuccess("Indexed %d catalog images", indexed)
		return nil
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question",
	Long: `Ask a single question against the indexed manuals.

Examples:
  manualqa ask "세탁기 에러코드 해결법"
  manualqa ask --image ./washer.png "이 세탁기 필터는 어떻게 청소하나요"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath, _ := cmd.Flags().GetString("image")

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		return answerOnce(cmd.Context(), a, strings.Join(args, " "), imagePath, nil)
	},
}

func init() {
	askCmd.Flags().String("image", "", "product photo for model identification")
}

func answerOnce(ctx context.Context, a *app, query, imagePath string, history []pipeline.ConversationTurn) error {
	printStep("답변 생성 중...")
	result, err := a.engine.Answer(ctx, query, imagePath, history)
	if err != nil {
		printError("답변 생성 실패: %v", err)
		return err
	}

	if !result.Identity.Unknown() {
		printStatus("모델명", "%s (%s)", result.Identity.ProductName, result.Identity.ModelCode)
	}
	fmt.Println(result.Answer)
	return nil
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat over the indexed manuals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Println(strings.Repeat("=", 60))
		fmt.Println("세탁기/건조기 매뉴얼 도우미")
		fmt.Println(strings.Repeat("=", 60))

		var history []pipeline.ConversationTurn
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("\n질문을 입력하세요 (종료하려면 '종료'): ")
			if !scanner.Scan() {
				break
			}
			query := strings.TrimSpace(scanner.Text())
			if query == "" {
				printWarning("질문을 입력해주세요.")
				continue
			}
			if query == "종료" {
				fmt.Println("종료합니다.")
				break
			}

			printStep("답변 생성 중...")
			result, err := a.engine.Answer(cmd.Context(), query, "", history)
			if err != nil {
				printError("오류: %v", err)
				continue
			}

			fmt.Println(strings.Repeat("=", 60))
			fmt.Println(result.Answer)
			fmt.Println(strings.Repeat("=", 60))

			history = append(history,
				pipeline.ConversationTurn{Role: "user", Content: query},
				pipeline.ConversationTurn{Role: "assistant", Content: result.Answer},
			)
		}
		return scanner.Err()
	},
}
