package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-kiu/internal/ai"
	"github.com/p-n-ai/pai-kiu/internal/kiu"
	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
	"github.com/p-n-ai/pai-kiu/internal/prompt"
)

// ErrGenerationFailed is returned for any failure of the generation calls.
var ErrGenerationFailed = apperror.New(apperror.KindExternalService, "Failed to generate assessment. Please try again.")

const defaultMaxTokens = 2048

// PipelineConfig holds dependencies for the assessment pipeline.
type PipelineConfig struct {
	Completer ai.Completer
	Prompts   *prompt.Loader
	Model     string // empty uses the provider default
	MaxTokens int    // per call (default 2048)
}

// Pipeline scores material and generates its assessment.
type Pipeline struct {
	completer ai.Completer
	prompts   *prompt.Loader
	model     string
	maxTokens int
}

// NewPipeline creates a new assessment pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return &Pipeline{
		completer: cfg.Completer,
		prompts:   cfg.Prompts,
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Generate scores text and produces its learning unit, accuracy narrative
// and quiz. The three generation calls run concurrently; if any fails the
// whole assessment fails.
func (p *Pipeline) Generate(ctx context.Context, text string) (*Assessment, error) {
	score, err := kiu.Score(text)
	if err != nil {
		return nil, err
	}
	minutes := kiu.ReadingTimeMinutes(kiu.WordCount(text))
	cpd := kiu.CPDPoints(minutes)

	start := time.Now()
	var (
		unit      LearningUnit
		accuracy  string
		questions []Question
		tokens    [3]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := p.complete(gctx, ai.TaskLearningUnit, prompt.LearningUnit, map[string]any{
			"Level":       string(score.Level),
			"ReadingTime": minutes,
			"KIU":         score.GraduatedScore,
			"CPDPoints":   cpd,
		}, text)
		if err != nil {
			return err
		}
		tokens[0] = resp.TotalTokens()
		return decodeValidated(learningUnitSchema, resp.Content, &unit)
	})
	g.Go(func() error {
		resp, err := p.complete(gctx, ai.TaskFactCheck, prompt.FactCheck, nil, text)
		if err != nil {
			return err
		}
		tokens[1] = resp.TotalTokens()
		accuracy = strings.TrimSpace(resp.Content)
		return nil
	})
	g.Go(func() error {
		resp, err := p.complete(gctx, ai.TaskQuiz, prompt.Quiz, map[string]any{
			"Questions": QuestionCount,
			"Options":   OptionCount,
		}, text)
		if err != nil {
			return err
		}
		tokens[2] = resp.TotalTokens()

		var quiz struct {
			Questions []Question `json:"questions"`
		}
		if err := decodeValidated(quizSchema, resp.Content, &quiz); err != nil {
			return err
		}
		questions = quiz.Questions
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("assessment generation failed", "error", err, "duration", time.Since(start))
		return nil, apperror.Wrap(ErrGenerationFailed, err)
	}

	unit.Level = string(score.Level)
	unit.ReadingTime = minutes
	unit.KIU = score.GraduatedScore
	unit.CPDPoints = cpd

	a := &Assessment{
		Questions:    questions,
		OriginalText: text,
		Accuracy:     accuracy,
		LearningUnit: unit,
		Tokens:       tokens[0] + tokens[1] + tokens[2],
	}

	slog.Info("assessment generated",
		"level", unit.Level,
		"kiu", unit.KIU,
		"questions", len(questions),
		"tokens", a.Tokens,
		"duration", time.Since(start),
	)
	return a, nil
}

func (p *Pipeline) complete(ctx context.Context, task ai.TaskType, promptID string, data any, text string) (ai.CompletionResponse, error) {
	tmpl, ok := p.prompts.Get(promptID)
	if !ok {
		return ai.CompletionResponse{}, fmt.Errorf("prompt %q not loaded", promptID)
	}
	system, err := tmpl.Render(data)
	if err != nil {
		return ai.CompletionResponse{}, err
	}

	maxTokens := p.maxTokens
	if tmpl.MaxTokens > 0 {
		maxTokens = tmpl.MaxTokens
	}

	resp, err := p.completer.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: text},
		},
		Model:       p.model,
		MaxTokens:   maxTokens,
		Temperature: tmpl.Temperature,
		Task:        task,
		JSON:        tmpl.JSON,
	})
	if err != nil {
		return ai.CompletionResponse{}, fmt.Errorf("%s: %w", task, err)
	}
	return resp, nil
}
