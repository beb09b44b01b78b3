// Package gemini implements llm.Client on top of the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/quailyquaily/gembird/llm"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey string
	// Endpoint overrides the API base URL (tests, proxies). Empty = default.
	Endpoint string
	Model    string
	// SystemInstruction is the persona text prepended to every exchange.
	SystemInstruction string
	RequestTimeout    time.Duration
}

type Client struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = defaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	model.SetTopK(40)
	model.SetMaxOutputTokens(8192)
	if s := strings.TrimSpace(cfg.SystemInstruction); s != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s)}}
	}
	// The persona file carries the content policy; the API-level filters
	// are disabled so the block signal is consistent across categories.
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &Client{client: client, model: model, timeout: timeout}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Generate(ctx context.Context, question string) (llm.Reply, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(question))
	if err != nil {
		return llm.Reply{}, fmt.Errorf("gemini generate: %w", err)
	}

	reply := replyFromResponse(resp)
	reply.Duration = time.Since(start)
	return reply, nil
}

// replyFromResponse maps the API response onto the explicit result union:
// prompt-level blocks, candidates withheld by safety filtering, and
// candidates with no text parts all surface as Blocked with a reason.
func replyFromResponse(resp *genai.GenerateContentResponse) llm.Reply {
	var reply llm.Reply
	if resp == nil {
		reply.Blocked = true
		reply.BlockReason = "empty response"
		return reply
	}

	if resp.UsageMetadata != nil {
		reply.Usage = llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		reply.Blocked = true
		reply.BlockReason = resp.PromptFeedback.BlockReason.String()
		reply.SafetyRatings = convertRatings(resp.PromptFeedback.SafetyRatings)
		return reply
	}

	if len(resp.Candidates) == 0 {
		reply.Blocked = true
		reply.BlockReason = "no candidates"
		return reply
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		reply.Blocked = true
		reply.BlockReason = cand.FinishReason.String()
		reply.SafetyRatings = convertRatings(cand.SafetyRatings)
		return reply
	}

	reply.Text = text
	return reply
}

func convertRatings(ratings []*genai.SafetyRating) []llm.SafetyRating {
	out := make([]llm.SafetyRating, 0, len(ratings))
	for _, r := range ratings {
		if r == nil {
			continue
		}
		out = append(out, llm.SafetyRating{
			Category:    r.Category.String(),
			Probability: r.Probability.String(),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
