package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	logx "taskbot/pkg/logx"
)

const budgetEncoding = "cl100k_base"

// tokenBudget clips user input to a maximum number of tokens.
//
// The encoding is loaded lazily on first use. If it cannot be loaded (for
// example the BPE ranks are not cached and there is no network), clipping is
// disabled and the input passes through unchanged.
type tokenBudget struct {
	max int
	log logx.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func newTokenBudget(max int, log logx.Logger) *tokenBudget {
	return &tokenBudget{max: max, log: log}
}

func (b *tokenBudget) load() *tiktoken.Tiktoken {
	b.once.Do(func() {
		enc, err := tiktoken.GetEncoding(budgetEncoding)
		if err != nil {
			b.log.Warn("token budget disabled: encoding unavailable", logx.String("encoding", budgetEncoding), logx.Err(err))
			return
		}
		b.enc = enc
	})
	return b.enc
}

func (b *tokenBudget) clip(text string) string {
	if b == nil || b.max <= 0 {
		return text
	}
	enc := b.load()
	if enc == nil {
		return text
	}
	toks := enc.Encode(text, nil, nil)
	if len(toks) <= b.max {
		return text
	}
	b.log.Debug("user text clipped", logx.Int("tokens", len(toks)), logx.Int("max", b.max))
	return enc.Decode(toks[:b.max])
}
