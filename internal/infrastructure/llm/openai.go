package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const systemMessage = "You are a helpful AI assistant."

const selectionTemplate = `Below is a list of news articles with their titles, descriptions, and sources.
Select the most relevant and important articles that should be fetched in more detail.
%s
%s
Respond with a JSON array of article URLs that should be scraped in detail.
Example format:
{
  "articles": [
    "https://example.com/article1",
    "https://example.com/article2",
    "https://example.com/article3"
  ]
}

Here are the articles:
%s
`

const summaryTemplate = `- Summarize the following articles: %s.
- Output to HTML format.
- If there are highly important news to me, display a callout at the top with a short summary of these news.
- Then prioritize the articles based on my interests.
- Do not include a ` + "```html" + ` tag in the output.
- Always include the link to the original article.

%s
`

var (
	// errEmptyResponse is returned when the model answers without content.
	errEmptyResponse = errors.New("empty response from openai")
	// errInvalidSelection marks an answer that is not the expected JSON.
	errInvalidSelection = errors.New("invalid selection")
)

// Client selects and summarizes articles through the chat completions API.
type Client struct {
	client     openai.Client
	model      string
	maxRetries int
	logger     *slog.Logger
}

var (
	_ ports.Selector   = (*Client)(nil)
	_ ports.Summarizer = (*Client)(nil)
)

// New builds a client from configuration. Extra request options are appended last.
func New(cfg config.OpenAIConfig, logger *slog.Logger, opts ...option.RequestOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	return &Client{
		client:     openai.NewClient(clientOpts...),
		model:      model,
		maxRetries: retries,
		logger:     logger.With("component", "openai"),
	}
}

type headlinePayload struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Description   string `json:"description,omitempty"`
	Source        string `json:"source"`
	Category      string `json:"category"`
	PublishedDate string `json:"published_date,omitempty"`
}

type selection struct {
	Articles []string `json:"articles"`
}

// Select asks the model which headlines deserve a detail fetch. Malformed answers are retried.
func (c *Client) Select(ctx context.Context, headlines []domain.Headline, interests string, categories []string) ([]string, error) {
	if len(headlines) == 0 {
		return nil, nil
	}

	payload := make([]headlinePayload, len(headlines))
	for i, h := range headlines {
		payload[i] = headlinePayload{
			Title:       h.Title,
			URL:         h.URL,
			Description: h.Description,
			Source:      h.SourceID,
			Category:    h.Category,
		}
		if !h.PublishedAt.IsZero() {
			payload[i].PublishedDate = h.PublishedAt.Format(time.DateOnly)
		}
	}
	articles, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal headlines: %w", err)
	}

	prompt := fmt.Sprintf(selectionTemplate, interests, categoryHint(categories), articles)

	var errs []error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		urls, err := c.selectOnce(ctx, prompt)
		if err == nil {
			c.logger.Info("articles selected", "headlines", len(headlines), "selected", len(urls), "attempt", attempt)
			return urls, nil
		}
		if !errors.Is(err, errInvalidSelection) && !errors.Is(err, errEmptyResponse) {
			return nil, fmt.Errorf("select: %w", err)
		}
		c.logger.Warn("selection attempt failed", "attempt", attempt, "max", c.maxRetries, "error", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("select after %d attempts: %w", c.maxRetries, errors.Join(errs...))
}

func (c *Client) selectOnce(ctx context.Context, prompt string) ([]string, error) {
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var sel selection
	if err := json.Unmarshal([]byte(stripFences(content)), &sel); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidSelection, err)
	}
	if sel.Articles == nil {
		return nil, fmt.Errorf("%w: \"articles\" key not found", errInvalidSelection)
	}
	return sel.Articles, nil
}

// Summarize writes the HTML summary of the detailed articles.
func (c *Client) Summarize(ctx context.Context, articles []domain.Article, interests string) (string, error) {
	type articlePayload struct {
		headlinePayload
		Content string `json:"content"`
	}

	payload := make([]articlePayload, len(articles))
	for i, a := range articles {
		payload[i] = articlePayload{
			headlinePayload: headlinePayload{
				Title:       a.Title,
				URL:         a.URL,
				Description: a.Description,
				Source:      a.SourceID,
				Category:    a.Category,
			},
			Content: a.Content,
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal articles: %w", err)
	}

	content, err := c.complete(ctx, fmt.Sprintf(summaryTemplate, raw, interests))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	summary := stripFences(content)
	if summary == "" {
		return "", fmt.Errorf("summarize: %w", errEmptyResponse)
	}
	return summary, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyResponse
	}
	return content, nil
}

func categoryHint(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	return "\nPrefer articles from these categories: " + strings.Join(categories, ", ") + ".\n"
}

// stripFences removes a Markdown code fence the model sometimes wraps its answer in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyz")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
