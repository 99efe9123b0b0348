package providers

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/josephgoksu/ReportWing/internal/llm"
)

type generateRequest struct {
	prompt string
	params llm.Params
}

type modelInput struct {
	messages []*schema.Message
	opts     []model.Option
}

// EinoGateway runs each prompt through a compiled graph:
// prompt -> model -> text.
type EinoGateway struct {
	runner compose.Runnable[*generateRequest, string]
}

// NewEinoGateway compiles the generation graph around chatModel. The system
// prompt, when set, is sent ahead of every user prompt.
func NewEinoGateway(ctx context.Context, chatModel model.BaseChatModel, systemPrompt string) (*EinoGateway, error) {
	promptFunc := func(ctx context.Context, req *generateRequest) (*modelInput, error) {
		msgs := make([]*schema.Message, 0, 2)
		if strings.TrimSpace(systemPrompt) != "" {
			msgs = append(msgs, schema.SystemMessage(systemPrompt))
		}
		msgs = append(msgs, schema.UserMessage(req.prompt))

		var opts []model.Option
		if req.params.Temperature > 0 {
			opts = append(opts, model.WithTemperature(req.params.Temperature))
		}
		if req.params.MaxTokens > 0 {
			opts = append(opts, model.WithMaxTokens(req.params.MaxTokens))
		}
		return &modelInput{messages: msgs, opts: opts}, nil
	}

	// BaseChatModel is wrapped in a lambda so models without tool binding still fit.
	modelFunc := func(ctx context.Context, in *modelInput) (*schema.Message, error) {
		return chatModel.Generate(ctx, in.messages, in.opts...)
	}

	textFunc := func(ctx context.Context, out *schema.Message) (string, error) {
		if out == nil || strings.TrimSpace(out.Content) == "" {
			return "", llm.ErrEmptyResponse
		}
		return out.Content, nil
	}

	graph := compose.NewGraph[*generateRequest, string]()
	_ = graph.AddLambdaNode("prompt", compose.InvokableLambda(promptFunc))
	_ = graph.AddLambdaNode("model", compose.InvokableLambda(modelFunc))
	_ = graph.AddLambdaNode("text", compose.InvokableLambda(textFunc))

	_ = graph.AddEdge(compose.START, "prompt")
	_ = graph.AddEdge("prompt", "model")
	_ = graph.AddEdge("model", "text")
	_ = graph.AddEdge("text", compose.END)

	runner, err := graph.Compile(ctx)
	if err != nil {
		return nil, llm.NewFailure(llm.FailureUnavailable, err)
	}
	return &EinoGateway{runner: runner}, nil
}

// Generate implements llm.Gateway. Errors are returned as *llm.Failure.
func (g *EinoGateway) Generate(ctx context.Context, prompt string, params llm.Params) (string, error) {
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}
	out, err := g.runner.Invoke(ctx, &generateRequest{prompt: prompt, params: params})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", llm.NewFailure(llm.FailureTimeout, ctxErr)
		}
		return "", llm.Classify(err)
	}
	return out, nil
}
