// Package recovery turns near-JSON model output into a validated JSON document through an
// ordered list of strategies: direct parse, syntactic repair, then fragment extraction.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/llm"
)

// Tier tags which strategy produced a result.
type Tier string

const (
	TierDirect    Tier = "direct"
	TierRepaired  Tier = "repaired"
	TierExtracted Tier = "extracted"
	TierFailed    Tier = "failed"
)

// DefaultMaxInputBytes bounds the text any strategy scans. It sits well above what a
// 4096-token completion can produce.
const DefaultMaxInputBytes = 256 << 10

// Result is the tagged outcome of one strategy or of the whole pipeline.
type Result struct {
	Tier    Tier
	Payload []byte
	// Dropped counts items removed by schema sanitizing.
	Dropped int
	Err     error
}

// OK reports whether the result carries a payload.
func (r Result) OK() bool { return r.Tier != TierFailed && r.Payload != nil }

// Strategy is one recovery tier. Attempt must not panic and reports failure through the result.
type Strategy struct {
	Tier    Tier
	Attempt func(normalized string, shape Shape) ([]byte, bool)
}

// DefaultStrategies returns the three tiers in escalation order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Tier: TierDirect, Attempt: func(s string, _ Shape) ([]byte, bool) {
			if json.Valid([]byte(s)) {
				return []byte(s), true
			}
			return nil, false
		}},
		{Tier: TierRepaired, Attempt: func(s string, shape Shape) ([]byte, bool) {
			fixed := Repair(s, shape)
			if json.Valid([]byte(fixed)) {
				return []byte(fixed), true
			}
			return nil, false
		}},
		{Tier: TierExtracted, Attempt: extractFragments},
	}
}

// Pipeline runs strategies in order and validates each candidate against the expected shape.
type Pipeline struct {
	strategies []Strategy
	maxInput   int
	log        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxInputBytes overrides DefaultMaxInputBytes.
func WithMaxInputBytes(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxInput = n
		}
	}
}

// WithStrategies replaces the default tiers.
func WithStrategies(s ...Strategy) Option {
	return func(p *Pipeline) {
		if len(s) > 0 {
			p.strategies = s
		}
	}
}

// NewPipeline builds a pipeline with the default tiers.
func NewPipeline(logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		strategies: DefaultStrategies(),
		maxInput:   DefaultMaxInputBytes,
		log:        logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Recover returns the first candidate that passes shape validation. When every tier fails
// it returns a failed result together with a common.ErrParse error.
func (p *Pipeline) Recover(raw string, shape Shape) (Result, error) {
	text := Normalize(clip(raw, p.maxInput))

	for _, st := range p.strategies {
		res := p.attempt(st, text, shape)
		if res.OK() {
			level := slog.LevelDebug
			if res.Tier != TierDirect {
				level = slog.LevelWarn
			}
			p.log.Log(context.Background(), level, "recovery.tier."+string(res.Tier),
				"shape", shape.Name, "bytes", len(res.Payload), "dropped", res.Dropped)
			return res, nil
		}
	}

	p.log.Error("recovery.failed", "shape", shape.Name, "raw_len", len(raw), "excerpt", clip(text, 500))
	err := common.ParseError("failed to parse AI response after all repair attempts", nil)
	return Result{Tier: TierFailed, Err: err}, err
}

func (p *Pipeline) attempt(st Strategy, text string, shape Shape) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("recovery.strategy.panic", "tier", st.Tier, "panic", r)
			res = Result{Tier: TierFailed, Err: fmt.Errorf("strategy %s panicked: %v", st.Tier, r)}
		}
	}()

	payload, ok := st.Attempt(text, shape)
	if !ok {
		return Result{Tier: TierFailed}
	}
	payload, dropped, err := conform(payload, shape)
	if err != nil {
		p.log.Debug("recovery.tier.rejected", "tier", st.Tier, "shape", shape.Name, "error", err)
		return Result{Tier: TierFailed, Err: err}
	}
	return Result{Tier: st.Tier, Payload: payload, Dropped: dropped}
}

// conform validates payload against the shape, falling back to dropping invalid list items.
// A payload that already validates is returned byte for byte.
func conform(payload []byte, shape Shape) ([]byte, int, error) {
	if shape.Schema == nil {
		return payload, 0, nil
	}
	verr := llm.ValidateJSONAgainstSchema(shape.Schema, payload)
	if verr == nil {
		return payload, 0, nil
	}
	if shape.ArrayKey == "" {
		return nil, 0, verr
	}
	cleaned, dropped, err := llm.SanitizeItems(payload, shape.ArrayKey, shape.Required)
	if err != nil {
		return nil, dropped, errors.Join(verr, err)
	}
	if err := llm.ValidateJSONAgainstSchema(shape.Schema, cleaned); err != nil {
		return nil, dropped, err
	}
	return cleaned, dropped, nil
}

// clip truncates s to at most n bytes on a rune boundary.
func clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Recover runs a default pipeline logging to slog.Default().
func Recover(raw string, shape Shape) (Result, error) {
	return NewPipeline(nil).Recover(raw, shape)
}

// Decode recovers raw with p and unmarshals the payload into T.
func Decode[T any](p *Pipeline, raw string, shape Shape) (T, Tier, error) {
	var out T
	if p == nil {
		p = NewPipeline(nil)
	}
	res, err := p.Recover(raw, shape)
	if err != nil {
		return out, res.Tier, err
	}
	if err := json.Unmarshal(res.Payload, &out); err != nil {
		return out, TierFailed, common.ParseError("recovered payload does not match the expected type", err)
	}
	return out, res.Tier, nil
}
