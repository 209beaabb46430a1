package prep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/prep-brief/internal/ai"
	"github.com/spigell/prep-brief/internal/logger"
	"github.com/spigell/prep-brief/internal/utils"
)

const defaultMaxLogLength = 200

// Invoker sends one prompt to a language model and returns its raw text.
// Implementations make a single attempt and report failures with the kinds
// from the ai package.
type Invoker interface {
	Invoke(ctx context.Context, prompt PromptPair, model string) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	Provider     string
	Model        string
	Mode         PromptMode
	MinLength    int
	Timeout      time.Duration
	MaxLogLength int
}

// Request holds the raw texts of one run.
type Request struct {
	JobDescription string
	CV             string
}

// Brief is the outcome of one run.
type Brief struct {
	Result        *Result
	Markdown      string
	Raw           string
	Model         string
	PromptVersion string
}

// JSON returns the persisted form of the record.
func (b *Brief) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(b.Result.Record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal brief: %w", err)
	}
	return append(data, '\n'), nil
}

// Pipeline turns a JD and a CV into a brief. It keeps no state between runs.
type Pipeline struct {
	invoker Invoker
	opts    Options
	logger  *zap.Logger
}

func NewPipeline(invoker Invoker, logger *zap.Logger, opts Options) (*Pipeline, error) {
	if invoker == nil {
		return nil, errors.New("model invoker is required")
	}

	mode, err := ParsePromptMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode

	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{invoker: invoker, opts: opts, logger: logger}, nil
}

// Run executes every stage once. Nothing after a failing stage runs.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Brief, error) {
	log := logger.WithRunFields(p.logger, p.opts.Provider, p.opts.Model, uuid.NewString())

	jd, err := NormalizeField("job description", req.JobDescription, p.opts.MinLength)
	if err != nil {
		return nil, err
	}
	cv, err := NormalizeField("CV", req.CV, p.opts.MinLength)
	if err != nil {
		return nil, err
	}

	prompt, err := BuildPrompt(jd, cv, p.opts.Mode)
	if err != nil {
		return nil, err
	}

	log.Debug("model request",
		zap.String("prompt_version", PromptVersion),
		zap.String("prompt_mode", string(prompt.Mode)),
		zap.Int("jd_length", jd.Len()),
		zap.Int("cv_length", cv.Len()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt.Combined())),
		zap.String("prompt_preview", utils.TruncateForLog(prompt.User, p.opts.MaxLogLength)),
	)

	raw, err := p.invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("model response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, p.opts.MaxLogLength)),
	)

	result, err := Coerce(raw)
	if err != nil {
		return nil, err
	}

	if len(result.Missing) > 0 {
		log.Warn("model response is missing keys",
			zap.Strings("missing", result.Missing),
			zap.Strings("invalid", result.Invalid),
		)
	}

	brief := &Brief{
		Result:        result,
		Markdown:      Render(result.Record),
		Raw:           raw,
		Model:         p.opts.Model,
		PromptVersion: PromptVersion,
	}

	log.Info("brief generated", zap.String("strategy", result.Strategy), zap.Int("missing_keys", len(result.Missing)))

	return brief, nil
}

func (p *Pipeline) invoke(ctx context.Context, prompt PromptPair) (string, error) {
	callCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	raw, err := p.invoker.Invoke(callCtx, prompt, p.opts.Model)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ai.ErrTimeout) {
			err = &ai.InvokeError{Kind: ai.ErrTimeout, Provider: p.opts.Provider, Err: err}
		}
		return "", fmt.Errorf("invoke model after %s: %w", time.Since(started).Round(time.Millisecond), err)
	}

	return raw, nil
}
