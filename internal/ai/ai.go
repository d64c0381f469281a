// Package ai runs the planner assistant: a Gemini chat with tools that read the caller's own data.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultModel is used when GEMINI_MODEL is unset.
const DefaultModel = "gemini-1.5-flash"

// maxToolRounds bounds the function-calling loop of one reply.
const maxToolRounds = 5

var ErrTooManyToolCalls = errors.New("assistant exceeded tool call limit")

// Reply is one assistant answer.
type Reply struct {
	Text       string `json:"response"`
	TokensUsed int    `json:"tokensUsed"`
}

// Assistant holds the Gemini client and the user-scoped tools.
type Assistant struct {
	client    *genai.Client
	modelName string
	tools     *Tools
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssistant initializes the Gemini client.
func NewAssistant(ctx context.Context, apiKey, modelName string, data DataSource, logger *zap.Logger) (*Assistant, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Assistant{
		client:    client,
		modelName: modelName,
		tools:     NewTools(data),
		logger:    logger.Named("ai"),
		now:       time.Now,
	}, nil
}

// Close releases the Gemini client.
func (a *Assistant) Close() error {
	return a.client.Close()
}

// Reply answers message on behalf of userID. Tool calls only ever see userID's data.
func (a *Assistant) Reply(ctx context.Context, userID int64, message string) (Reply, error) {
	// 1. Configure the model for this conversation.
	model := a.client.GenerativeModel(a.modelName)
	model.Tools = []*genai.Tool{{FunctionDeclarations: a.tools.Declarations()}}
	today := a.now().UTC().Format(time.DateOnly)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(systemPrompt, today))},
	}

	// 2. Send the user's message.
	cs := model.StartChat()
	res, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return Reply{}, fmt.Errorf("error sending message: %w", err)
	}

	// 3. Resolve function calls until the model answers in text.
	for round := 0; ; round++ {
		tokens := 0
		if res.UsageMetadata != nil {
			tokens = int(res.UsageMetadata.TotalTokenCount)
		}

		call, text := firstPart(res)
		if call == nil {
			if text == "" {
				text = "No response."
			}
			return Reply{Text: text, TokensUsed: tokens}, nil
		}
		if round >= maxToolRounds {
			return Reply{}, ErrTooManyToolCalls
		}

		a.logger.Debug("assistant tool call",
			zap.Int64("user_id", userID),
			zap.String("tool", call.Name),
			zap.Any("args", call.Args),
		)
		result, err := a.tools.Call(ctx, userID, call.Name, call.Args)
		if err != nil {
			result = map[string]any{"error": err.Error()}
		}

		res, err = cs.SendMessage(ctx, genai.FunctionResponse{Name: call.Name, Response: result})
		if err != nil {
			return Reply{}, fmt.Errorf("tool response error: %w", err)
		}
	}
}

func firstPart(res *genai.GenerateContentResponse) (*genai.FunctionCall, string) {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, ""
	}
	var text strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			return &p, ""
		case genai.Text:
			text.WriteString(string(p))
		}
	}
	return nil, text.String()
}

const systemPrompt = `You are the Day Planner assistant. Today is %s.
You can look up the user's tasks (list_tasks) and which routines are due on a date (list_due_routines).
Only answer from tool results; never invent tasks or routines. Dates are YYYY-MM-DD. Be concise.`
