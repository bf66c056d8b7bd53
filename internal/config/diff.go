package config

import (
	"slices"
	"sort"
	"strings"

	logx "taskbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging. Secrets (token, api keys) are reported only
// as "set" booleans.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)
	trim := strings.TrimSpace

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || trim(ot.PollTimeout) != trim(nt.PollTimeout) || ot.SendRatePerSec != nt.SendRatePerSec {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.String("telegram.poll_timeout", trim(nt.PollTimeout)),
			logx.Any("telegram.send_rate_per_sec", nt.SendRatePerSec),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	oc, nc := oldCfg.AI.Completion, newCfg.AI.Completion
	oa, na := oldCfg.AI.Transcription, newCfg.AI.Transcription
	completionChanged := trim(oc.BaseURL) != trim(nc.BaseURL) || oc.APIKey != nc.APIKey ||
		trim(oc.Model) != trim(nc.Model) || oc.MaxTokens != nc.MaxTokens ||
		!sameFloat(oc.Temperature, nc.Temperature) || trim(oc.Timeout) != trim(nc.Timeout) ||
		oc.MaxInputTokens != nc.MaxInputTokens
	if completionChanged || oa != na {
		changed = append(changed, "ai")
		attrs = append(attrs,
			logx.String("ai.completion.model", trim(nc.Model)),
			logx.Bool("ai.completion.key_set", nc.APIKey != ""),
			logx.String("ai.transcription.model", trim(na.Model)),
			logx.Bool("ai.transcription.key_set", na.APIKey != ""),
		)
	}

	osch, ns := oldCfg.Scheduler, newCfg.Scheduler
	if trim(osch.Timezone) != trim(ns.Timezone) || trim(osch.DigestAt) != trim(ns.DigestAt) || osch.DigestOn() != ns.DigestOn() {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.timezone", trim(ns.Timezone)),
			logx.String("scheduler.digest_at", trim(ns.DigestAt)),
			logx.Bool("scheduler.digest_enabled", ns.DigestOn()),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", trim(newCfg.Storage.Driver)),
			logx.Bool("storage.path_set", trim(newCfg.Storage.Path) != ""),
			logx.String("storage.busy_timeout", trim(newCfg.Storage.BusyTimeout)),
		)
	}

	if !slices.Equal(oldCfg.Access.AllowedUserIDs, newCfg.Access.AllowedUserIDs) {
		changed = append(changed, "access")
		attrs = append(attrs, logx.Int("access.allowed_count", len(newCfg.Access.AllowedUserIDs)))
	}

	sort.Strings(changed)
	return changed, attrs
}

// RestartRequired lists changed sections that only take effect on restart.
// Logging and access apply live.
func RestartRequired(changed []string) []string {
	out := make([]string, 0, len(changed))
	for _, s := range changed {
		switch s {
		case "logging", "access":
		default:
			out = append(out, s)
		}
	}
	return out
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
