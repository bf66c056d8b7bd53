package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables consulted when the matching config field is empty.
const (
	EnvBotToken       = "BOT_TOKEN"
	EnvAIKey          = "AI_API_KEY"
	EnvAIBaseURL      = "AI_BASE_URL"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvAllowedUserIDs = "ALLOWED_USER_IDS"
)

// applyEnv fills empty secrets and endpoints from the environment. File values win.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = strings.TrimSpace(getenv(key))
		}
	}
	fill(&cfg.Telegram.Token, EnvBotToken)
	fill(&cfg.AI.Completion.APIKey, EnvAIKey)
	fill(&cfg.AI.Completion.BaseURL, EnvAIBaseURL)
	fill(&cfg.AI.Transcription.APIKey, EnvOpenAIKey)

	if len(cfg.Access.AllowedUserIDs) == 0 {
		ids, err := parseIDList(getenv(EnvAllowedUserIDs))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAllowedUserIDs, err)
		}
		cfg.Access.AllowedUserIDs = ids
	}
	return nil
}

// parseIDList parses "123,456".
func parseIDList(raw string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}
