package planner

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/pipeline"
	"reel/internal/services"
	"reel/internal/services/llm"
)

const (
	maxTitleLength       = 100
	maxTags              = 12
	maxDescriptionLength = 4500
	fallbackTitle        = "AI Generated Video"
)

var fallbackTags = []string{"ai", "generated", "video", "shorts"}

// Planner produces a content plan from the configured brief.
type Planner struct {
	cfg    *config.Config
	client *llm.Client
	logger *slog.Logger
}

// New constructs a Planner over the configured chat completion endpoint.
func New(cfg *config.Config, logger *slog.Logger) *Planner {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.Planner.APIKey,
		BaseURL:        cfg.Planner.BaseURL,
		Model:          cfg.Planner.Model,
		Referer:        cfg.Planner.Referer,
		Title:          cfg.Planner.Title,
		TimeoutSeconds: cfg.Planner.TimeoutSeconds,
	})
	return &Planner{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "planner"),
	}
}

// Plan generates a video prompt from the instructions and asks the model
// for matching upload metadata. A metadata failure falls back to values
// derived from the prompt text; only the prompt completion is fatal.
func (p *Planner) Plan(ctx context.Context, instructions string) (*pipeline.ContentPlan, error) {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		instructions = strings.TrimSpace(p.cfg.Planner.Instructions)
	}
	if strings.TrimSpace(p.cfg.Planner.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "planner", "plan", "planner api key not configured", nil)
	}
	if instructions == "" {
		return nil, services.Wrap(services.ErrConfiguration, "planner", "plan", "planner instructions not configured", nil)
	}

	promptText, err := p.client.CompleteText(ctx, videoPromptSystem, instructions)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "planner", "generate prompt", "prompt completion failed", err)
	}
	promptText = strings.TrimSpace(promptText)

	meta, err := p.generateMetadata(ctx, promptText)
	if err != nil {
		logging.WarnWithContext(p.logger, "metadata completion failed; deriving metadata from prompt",
			"plan_metadata_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "upload uses derived title and default tags"),
		)
		meta = fallbackMetadata(promptText)
	}

	return &pipeline.ContentPlan{
		PromptText:  promptText,
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
	}, nil
}

type metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (p *Planner) generateMetadata(ctx context.Context, promptText string) (metadata, error) {
	content, err := p.client.CompleteJSON(ctx, metadataSystem, "Video prompt:\n\n"+promptText)
	if err != nil {
		return metadata{}, err
	}
	var meta metadata
	if err := llm.DecodeLLMJSON(content, &meta); err != nil {
		return metadata{}, err
	}
	return normalizeMetadata(meta, promptText), nil
}

func normalizeMetadata(meta metadata, promptText string) metadata {
	meta.Title = truncate(strings.TrimSpace(meta.Title), maxTitleLength)
	if meta.Title == "" {
		meta.Title = deriveTitle(promptText)
	}
	meta.Description = truncate(strings.TrimSpace(meta.Description), maxDescriptionLength)
	if meta.Description == "" {
		meta.Description = describePrompt(promptText)
	}

	tags := make([]string, 0, len(meta.Tags))
	for _, tag := range meta.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	if len(tags) == 0 {
		tags = append(tags, fallbackTags...)
	}
	meta.Tags = tags
	return meta
}

func fallbackMetadata(promptText string) metadata {
	return metadata{
		Title:       deriveTitle(promptText),
		Description: describePrompt(promptText),
		Tags:        append([]string(nil), fallbackTags...),
	}
}

func describePrompt(promptText string) string {
	return truncate("Video generated from the prompt: "+strings.TrimSpace(promptText), maxDescriptionLength)
}

// deriveTitle builds a display title from the prompt's opening clause.
func deriveTitle(promptText string) string {
	clause := strings.TrimSpace(promptText)
	for _, stop := range []string{".", "!", "?", "\n"} {
		if idx := strings.Index(clause, stop); idx > 0 {
			clause = clause[:idx]
		}
	}

	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range clause {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == ',':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return fallbackTitle
	}
	return truncate(cases.Title(language.Und).String(title), maxTitleLength)
}

func truncate(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit]))
}
