package ai

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ModerationClient asks Gemini for an abuse-severity estimate of a
// reported conversation.
type ModerationClient struct {
	model string
}

func NewModerationClient() *ModerationClient {
	model := os.Getenv("GEMINI_MODERATION_MODEL")
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &ModerationClient{model: model}
}

// Score rates a report 0-10 from the reporter's reason plus recent
// message excerpts (already decrypted by the caller).
func (c *ModerationClient) Score(ctx context.Context, reason, description string, excerpts []string) (float64, error) {
	start := time.Now()
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("genai client: %w", err)
	}

	prompt := `You are a content moderator for a cross-border marketplace chat.
Given an abuse report and recent message excerpts, rate the severity on a 0-10 scale:
0 = clearly harmless, 5 = needs human review, 10 = urgent (threats, fraud in progress, illegal goods).
Answer with the number only, wrapped in dollar signs, e.g. $6$.
No other text.`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Report reason: %s\n", reason)
	if description != "" {
		fmt.Fprintf(&sb, "Report details: %s\n", description)
	}
	if len(excerpts) > 0 {
		sb.WriteString("Recent messages (newest first):\n")
		for _, e := range excerpts {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromText(sb.String()),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	res, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return 0, fmt.Errorf("gemini generate: %w", err)
	}
	severity, err := ParseSeverity(res.Text())
	if err != nil {
		return 0, err
	}
	log.Printf("[moderation] model=%s severity=%.1f tookMs=%d", c.model, severity, time.Since(start).Milliseconds())
	return severity, nil
}
