package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// infer runs one completion and decodes the JSON object in the reply into
// out. Malformed output is an error; callers treat it like any other
// collaborator failure.
func infer(ctx context.Context, client Client, log zerolog.Logger, system, instruction string, out any) error {
	resp, err := client.Generate(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: instruction},
	})
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}
	log.Debug().Str("model", resp.Model).Int("prompt_tokens", resp.PromptTokens).
		Int("completion_tokens", resp.CompletionTokens).Msg("completion finished")

	if err := json.Unmarshal([]byte(stripFences(resp.Content)), out); err != nil {
		return fmt.Errorf("malformed model output: %w", err)
	}
	return nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
