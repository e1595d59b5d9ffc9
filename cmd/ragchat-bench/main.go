package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/builder"
	"github.com/futig/ragchat/internal/entity"
)

// Compares answer quality and latency of several Ollama models against the
// same knowledge base. Each model gets its own session, so follow-up
// questions exercise the conversation memory too.

var defaultQuestions = []string{
	"How do I restart the router?",
	"What should I check when DNS names fail to resolve?",
}

func main() {
	models := flag.String("models", "llama3", "comma-separated list of Ollama models to benchmark")
	questionsFile := flag.String("questions", "", "path to a file with one question per line (optional)")
	out := flag.String("out", "benchmark-results.csv", "path of the report to write")
	format := flag.String("format", "csv", "report format: csv or markdown")

	bench, err := builder.BuildBench()
	if err != nil {
		log.Fatal("Failed to build benchmark:", err)
	}
	defer bench.Close()

	questions := defaultQuestions
	if *questionsFile != "" {
		questions, err = readQuestions(*questionsFile)
		if err != nil {
			log.Fatal("Failed to read questions:", err)
		}
	}

	modelList := splitModels(*models)
	if len(modelList) == 0 {
		log.Fatal("No models given")
	}

	bench.Logger.Info("starting benchmark",
		zap.Strings("models", modelList),
		zap.Int("question_count", len(questions)),
	)

	rows, err := run(context.Background(), bench, modelList, questions)
	if err != nil {
		log.Fatal("Benchmark failed:", err)
	}

	switch *format {
	case "csv":
		err = writeCSV(*out, rows)
	case "markdown":
		err = writeMarkdown(*out, rows)
	default:
		log.Fatalf("Unknown report format %q (expected csv or markdown)", *format)
	}
	if err != nil {
		log.Fatal("Failed to write report:", err)
	}

	bench.Logger.Info("benchmark finished",
		zap.Int("row_count", len(rows)),
		zap.String("report", *out),
	)
}

type row struct {
	Model    string
	Question string
	Answer   string
	Sources  []entity.SourceRef
	Elapsed  float64
}

func run(ctx context.Context, bench *builder.Bench, models, questions []string) ([]row, error) {
	rows := make([]row, 0, len(models)*len(questions))

	for _, model := range models {
		session, err := bench.ChatUC.StartSession(ctx, &entity.StartSessionRequest{
			Title: "benchmark " + model,
			Model: model,
		})
		if err != nil {
			return nil, fmt.Errorf("start session for %s: %w", model, err)
		}

		for _, question := range questions {
			answer, err := bench.ChatUC.Ask(ctx, session.ID, &entity.AskRequest{Question: question})
			if err != nil {
				bench.Logger.Warn("question failed",
					zap.String("model", model),
					zap.String("question", question),
					zap.Error(err),
				)
				rows = append(rows, row{
					Model:    model,
					Question: question,
					Answer:   "ERROR: " + err.Error(),
				})
				continue
			}

			rows = append(rows, row{
				Model:    model,
				Question: question,
				Answer:   answer.Answer,
				Sources:  answer.Sources,
				Elapsed:  answer.Elapsed,
			})

			bench.Logger.Info("question answered",
				zap.String("model", model),
				zap.Float64("elapsed_seconds", answer.Elapsed),
			)
		}

		if _, err := bench.ChatUC.CloseSession(ctx, session.ID); err != nil {
			bench.Logger.Warn("failed to close benchmark session", zap.Error(err))
		}
	}

	return rows, nil
}

func writeCSV(path string, rows []row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"model", "question", "answer", "sources", "elapsed_seconds"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		sources := make([]string, 0, len(r.Sources))
		for _, src := range r.Sources {
			sources = append(sources, src.Source)
		}

		record := []string{
			r.Model,
			r.Question,
			r.Answer,
			strings.Join(sources, "; "),
			fmt.Sprintf("%.2f", r.Elapsed),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func writeMarkdown(path string, rows []row) error {
	var sb strings.Builder
	sb.WriteString("# Model benchmark\n\n")
	sb.WriteString("| Model | Question | Answer | Sources | Elapsed (s) |\n")
	sb.WriteString("|---|---|---|---|---|\n")

	for _, r := range rows {
		sources := make([]string, 0, len(r.Sources))
		for _, src := range r.Sources {
			sources = append(sources, src.Source)
		}

		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f |\n",
			mdCell(r.Model),
			mdCell(r.Question),
			mdCell(r.Answer),
			mdCell(strings.Join(sources, "; ")),
			r.Elapsed,
		))
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// mdCell makes a value safe for a one-line markdown table cell
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			questions = append(questions, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions in %s", path)
	}

	return questions, nil
}

func splitModels(models string) []string {
	parts := strings.Split(models, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
