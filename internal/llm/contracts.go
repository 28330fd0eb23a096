package llm

import (
	"context"

	"github.com/joseph-ayodele/studydeck/constants"
)

// InvokeOptions are the sampling knobs for one completion.
type InvokeOptions struct {
	Temperature float32
	MaxTokens   int
}

// Invoker performs exactly one completion call per Invoke. Implementations return a
// common.ErrConfiguration error when credentials are missing and a common.ErrTransport
// error for any provider or network failure. They never retry.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, prompt string, opts InvokeOptions) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	return f(ctx, prompt, opts)
}

var policies = map[constants.Operation]InvokeOptions{
	constants.OperationAnalyze:   {Temperature: 0.5, MaxTokens: 2048},
	constants.OperationFlashcard: {Temperature: 0.9, MaxTokens: 4096},
	constants.OperationMCQ:       {Temperature: 0.7, MaxTokens: 4096},
}

// PolicyFor returns the temperature and token ceiling used for op.
func PolicyFor(op constants.Operation) InvokeOptions {
	if p, ok := policies[op]; ok {
		return p
	}
	return policies[constants.OperationAnalyze]
}
