package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// heuristicCharsPerToken is the fallback ratio used when no tokenizer
// is available for a provider.
const heuristicCharsPerToken = 4

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens estimates the token count of text for the given
// provider backend. OpenAI-family models use tiktoken (cl100k_base);
// other providers do not publish tokenizers, so a chars/4 heuristic
// applies. The tiktoken BPE tables load lazily; on load failure the
// heuristic applies everywhere. Non-empty text always estimates to at
// least one token so failed attempts still settle on the ledger.
func EstimateTokens(text, backend string) int {
	if text == "" {
		return 0
	}
	if backend == "openai" {
		encodingOnce.Do(func() {
			enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
			if err == nil {
				encoding = enc
			}
		})
		if encoding != nil {
			return len(encoding.Encode(text, nil, nil))
		}
	}
	n := len(text) / heuristicCharsPerToken
	if n < 1 {
		n = 1
	}
	return n
}
