package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newslens/newslens/pkg/retrieval"
)

// Args is the parsed argument set of a command line. Unknown key=value
// pairs land in Params untouched; agents read them by name.
type Args struct {
	Window   string
	Lang     string
	Sources  []string
	Topic    string
	Entity   string
	Query    string
	KFinal   int  // 0 = default
	Rerank   *bool
	Params   map[string]string
	Trailing string // free text after all key=value pairs
}

// parseArgs applies the shared argument grammar. Values may be quoted;
// bare tokens before the first key=value pair (or --flag) join into the
// trailing free text.
func parseArgs(s string) (*Args, error) {
	args := &Args{Params: map[string]string{}}
	var trailing []string

	for _, tok := range tokenize(s) {
		if tok == "rerank" || tok == "--rerank" {
			v := true
			args.Rerank = &v
			continue
		}
		if tok == "no-rerank" || tok == "--no-rerank" {
			v := false
			args.Rerank = &v
			continue
		}

		key, value, ok := splitKeyValue(tok)
		if !ok {
			trailing = append(trailing, tok)
			continue
		}
		switch key {
		case "window":
			args.Window = value
		case "lang":
			args.Lang = value
		case "sources":
			args.Sources = splitCSV(value)
		case "topic":
			args.Topic = value
		case "entity":
			args.Entity = value
		case "query":
			args.Query = value
		case "k":
			k, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("k must be an integer, got %q", value)
			}
			if k < retrieval.MinKFinal {
				k = retrieval.MinKFinal
			}
			if k > retrieval.MaxKFinal {
				k = retrieval.MaxKFinal
			}
			args.KFinal = k
		default:
			args.Params[key] = value
		}
	}

	args.Trailing = strings.Join(trailing, " ")
	return args, nil
}

// splitKeyValue parses `key=value` and `--key=value` tokens.
func splitKeyValue(tok string) (key, value string, ok bool) {
	tok = strings.TrimPrefix(tok, "--")
	i := strings.IndexByte(tok, '=')
	if i <= 0 {
		return "", "", false
	}
	return strings.ToLower(tok[:i]), tok[i+1:], true
}

// tokenize splits on whitespace while respecting double quotes, so
// `topic="rate hikes"` stays one token with the quotes stripped.
func tokenize(s string) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
