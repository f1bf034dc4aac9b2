package client

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
)

// Responder produces a single model answer for a prompt.
type Responder interface {
	GetResponse(ctx context.Context, req *GetResponseInput) (*GetResponseOutput, error)
}

type OpenAIClient struct {
	c     *openai.Client
	model string
}

// NewOpenAIClient builds a client for model. Extra options are appended
// after the API key, so tests can point it at a local server.
func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		model = openai.ChatModelGPT4_1Mini
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIClient{
		c:     &client,
		model: model,
	}, nil
}

type GetResponseInput struct {
	SystemPrompt    string                                  `json:"system_prompt"`
	History         []responses.ResponseInputItemUnionParam `json:"history"`
	MaxOutputTokens int64                                   `json:"max_output_tokens"`
}

type GetResponseOutput struct {
	Answer string `json:"answer"`
}

func (o *OpenAIClient) GetResponse(ctx context.Context, req *GetResponseInput) (*GetResponseOutput, error) {
	params := responses.ResponseNewParams{
		Model:        o.model,
		Instructions: param.NewOpt(req.SystemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: req.History,
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = param.NewOpt(req.MaxOutputTokens)
	}

	res, err := o.c.Responses.New(ctx, params)
	if err != nil {
		return nil, err
	}

	answer := ""
	for _, out := range res.Output {
		if out.Type != "message" {
			continue
		}
		if content := out.AsMessage().Content; len(content) > 0 {
			answer = content[0].Text
		}
	}

	return &GetResponseOutput{Answer: strings.TrimSpace(answer)}, nil
}

func UserMessage(msg string) responses.ResponseInputItemUnionParam {
	return responses.ResponseInputItemUnionParam{
		OfMessage: &responses.EasyInputMessageParam{
			Role: responses.EasyInputMessageRoleUser,
			Type: responses.EasyInputMessageTypeMessage,
			Content: responses.EasyInputMessageContentUnionParam{
				OfString: param.NewOpt(msg),
			},
		},
	}
}
