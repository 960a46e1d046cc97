package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
	"github.com/newslens/newslens/pkg/retrieval"
)

// Retrieval recovery walks at most this many ladder steps.
const maxWindowExpansions = 5

// Error is the internal pipeline failure carried up to the
// orchestrator, which alone converts it into a user-visible envelope.
type Error struct {
	Code models.ErrorCode
	Tech string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Tech) }

func newError(code models.ErrorCode, format string, a ...any) *Error {
	return &Error{Code: code, Tech: fmt.Sprintf(format, a...)}
}

// Context is the validated execution context a command runs with.
type Context struct {
	Spec          *CommandSpec
	Query         string
	Window        string
	Language      string // response language, "en" or "ru"
	Sources       []string
	KFinal        int
	UseRerank     bool
	Params        map[string]string
	Docs          []models.Document
	CorrelationID string

	// RetrievalSkipped marks commands that intentionally run without
	// documents; the validator relaxes evidence requirements for them.
	RetrievalSkipped bool
}

// DocRetriever is the slice of the retriever the builder needs.
type DocRetriever interface {
	Retrieve(ctx context.Context, q retrieval.Query, ledger *budget.Ledger) ([]models.Document, error)
}

// ContextBuilder normalizes a raw command into a Context: it parses
// arguments, overlays defaults, runs retrieval with auto-recovery, and
// validates the result before any agent fires.
type ContextBuilder struct {
	cfg       *config.Config
	retriever DocRetriever
}

// NewContextBuilder wires the builder to the merged config and the retriever.
func NewContextBuilder(cfg *config.Config, retriever DocRetriever) *ContextBuilder {
	return &ContextBuilder{cfg: cfg, retriever: retriever}
}

// Build produces a validated context or an *Error. Degradation
// warnings from auto-recovery accumulate on the ledger.
func (b *ContextBuilder) Build(ctx context.Context, req Request, ledger *budget.Ledger) (*Context, error) {
	spec, rest, ok := normalizeCommand(req.Command)
	if !ok {
		return nil, newError(models.CodeValidationFailed, "unknown command %q", req.Command)
	}
	args, err := parseArgs(rest)
	if err != nil {
		return nil, newError(models.CodeValidationFailed, "bad arguments: %v", err)
	}

	c := &Context{
		Spec:          spec,
		Window:        args.Window,
		Sources:       args.Sources,
		KFinal:        args.KFinal,
		Params:        args.Params,
		CorrelationID: req.CorrelationID,
	}
	if c.Window == "" {
		c.Window = b.cfg.Retrieval.WindowDefault
	}
	if _, ok := config.ParseWindow(c.Window); !ok {
		return nil, newError(models.CodeValidationFailed, "unknown window %q", c.Window)
	}
	if c.KFinal == 0 {
		c.KFinal = b.cfg.Retrieval.KFinalDefault
	}

	lang := args.Lang
	if lang == "" {
		lang = req.Lang
	}
	c.Language = models.NormalizeLanguage(lang)

	c.UseRerank = b.cfg.Retrieval.RerankEnabled()
	if args.Rerank != nil {
		c.UseRerank = *args.Rerank
	}

	// Query priority: query= over topic= over entity= over free text.
	switch {
	case args.Query != "":
		c.Query = args.Query
	case args.Topic != "":
		c.Query = args.Topic
	case args.Entity != "":
		c.Query = args.Entity
	case args.Trailing != "":
		c.Query = args.Trailing
	case args.Params["niche"] != "":
		c.Query = args.Params["niche"]
	default:
		c.Query = "latest news"
	}
	if spec.RequiresQuery && c.Query == "latest news" {
		return nil, newError(models.CodeValidationFailed, "command %s requires a query", spec.Name)
	}
	if len(spec.RequiredParams) > 0 {
		present := false
		for _, p := range spec.RequiredParams {
			if c.Params[p] != "" {
				present = true
				break
			}
		}
		if !present {
			return nil, newError(models.CodeValidationFailed,
				"command %s requires one of: %s", spec.Name, strings.Join(spec.RequiredParams, ", "))
		}
	}

	if op, ok := memoryOps[spec.Name]; ok {
		c.Params["op"] = op
		c.Params["content"] = args.Trailing
	}
	if req.UserID != "" {
		c.Params["user_id"] = req.UserID
	}

	if b.skipRetrieval(spec, c) {
		c.RetrievalSkipped = true
		return c, nil
	}
	if err := b.retrieve(ctx, c, ledger); err != nil {
		return nil, err
	}
	if err := validateContext(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *ContextBuilder) skipRetrieval(spec *CommandSpec, c *Context) bool {
	if spec.SkipRetrieval {
		return true
	}
	if spec.Name == "ask" && isGeneralKnowledge(c.Query) {
		return true
	}
	return false
}

// retrieve runs the auto-recovery ladder: the requested query first,
// then window expansion, then filter relaxation, then a last pass
// without reranking at the widest k. Each successful recovery step
// tags the ledger; total exhaustion is NO_DATA with the attempt log.
func (b *ContextBuilder) retrieve(ctx context.Context, c *Context, ledger *budget.Ledger) error {
	q := retrieval.Query{
		Text:      c.Query,
		Window:    c.Window,
		Language:  c.Language,
		Sources:   c.Sources,
		KFinal:    c.KFinal,
		UseRerank: c.UseRerank,
	}
	var attempts []string

	try := func(q retrieval.Query) ([]models.Document, error) {
		attempts = append(attempts, describeAttempt(q))
		docs, err := b.retriever.Retrieve(ctx, q, ledger)
		if err != nil {
			return nil, newError(models.CodeInternal, "retrieval failed: %v", err)
		}
		return docs, nil
	}
	accept := func(docs []models.Document, q retrieval.Query) {
		if q.Window != c.Window {
			ledger.AddWarning(fmt.Sprintf("degradation_window_expanded:%s→%s", c.Window, q.Window))
			c.Window = q.Window
		}
		c.Sources = q.Sources
		c.UseRerank = q.UseRerank
		c.KFinal = q.KFinal
		c.Docs = docs
	}

	docs, err := try(q)
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		accept(docs, q)
		return nil
	}

	if b.cfg.Retrieval.AutoExpand() {
		for _, w := range config.NextWindows(q.Window, maxWindowExpansions) {
			q.Window = w
			if docs, err = try(q); err != nil {
				return err
			}
			if len(docs) > 0 {
				accept(docs, q)
				return nil
			}
		}
	}

	if b.cfg.Retrieval.RelaxFilters() && (q.Language != "auto" || len(q.Sources) > 0) {
		q.Language = "auto"
		q.Sources = nil
		if docs, err = try(q); err != nil {
			return err
		}
		if len(docs) > 0 {
			ledger.AddWarning("degradation_filters_relaxed")
			accept(docs, q)
			return nil
		}
	}

	if b.cfg.Retrieval.FallbackRerankOff() && q.UseRerank {
		q.UseRerank = false
		q.KFinal = retrieval.MaxKFinal
		if docs, err = try(q); err != nil {
			return err
		}
		if len(docs) > 0 {
			ledger.AddWarning("degradation_rerank_disabled")
			accept(docs, q)
			return nil
		}
	}

	return newError(models.CodeNoData,
		"no documents after auto-recovery; attempted: %s", strings.Join(attempts, "; "))
}

func describeAttempt(q retrieval.Query) string {
	return fmt.Sprintf("window=%s lang=%s sources=%d rerank=%t k=%d",
		q.Window, q.Language, len(q.Sources), q.UseRerank, q.KFinal)
}

// validateContext is the hard gate before any agent fires: documents
// must carry valid dates and languages, and k must match what was
// actually retrieved.
func validateContext(c *Context) error {
	if len(c.Docs) == 0 {
		return newError(models.CodeNoData, "validated context has no documents")
	}
	for _, d := range c.Docs {
		if !models.DateRe.MatchString(d.PublishedDate) {
			return newError(models.CodeInternal, "document %s has invalid date %q", d.ArticleID, d.PublishedDate)
		}
		if d.Language != "en" && d.Language != "ru" {
			return newError(models.CodeInternal, "document %s has invalid language %q", d.ArticleID, d.Language)
		}
	}
	// Retrieval can honestly return fewer documents than requested; the
	// context pins k to what the agents will actually see.
	if len(c.Docs) < c.KFinal {
		c.KFinal = len(c.Docs)
	}
	return nil
}
