package completion

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/copilotchat/copilot/backend/internal/model/chat"
)

// ErrCredentialMissing is returned when Complete is called before a
// credential has been supplied.
var ErrCredentialMissing = errors.New("completion credential is not set")

// CompletionError reports a failed or unusable completion call. Message is
// the remote-provided detail when available, else a generic description.
type CompletionError struct {
	Message string
	err     error
}

func (e *CompletionError) Error() string { return e.Message }

func (e *CompletionError) Unwrap() error { return e.err }

// Config carries the fixed request parameters for the completion endpoint.
type Config struct {
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
}

// Client issues chat completion requests against an OpenAI-compatible
// endpoint using the credential held by Credentials.
type Client struct {
	creds *Credentials
	cfg   Config
}

// NewClient returns a Client reading its credential from creds at call time.
func NewClient(creds *Credentials, cfg Config) *Client {
	return &Client{creds: creds, cfg: cfg}
}

// Complete sends the transcript, prefixed with the system prompt, and
// returns the text of the first choice. A single failed call surfaces
// immediately, no retry is performed.
func (c *Client) Complete(ctx context.Context, transcript []chat.Message) (string, error) {
	key := c.creds.Get()
	if key == "" {
		return "", ErrCredentialMissing
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, msg := range transcript {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    messages,
		Temperature: openai.Float(c.cfg.Temperature),
		MaxTokens:   openai.Int(c.cfg.MaxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return "", &CompletionError{Message: apiErr.Message, err: err}
		}
		return "", &CompletionError{Message: "failed to get response from completion endpoint", err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &CompletionError{Message: "completion response contained no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}
