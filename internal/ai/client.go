package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sakif/study-buddy/internal/model"
)

// Defaults point at Gemini's OpenAI-compatible endpoint.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.5-flash"
)

// Config holds connection settings for the model endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client implements Collaborator with go-openai.
type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// Compile-time check that *Client satisfies the interface.
var _ Collaborator = (*Client)(nil)

// New creates a Client. Empty BaseURL and Model fall back to the defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  modelName,
		logger: logger,
	}
}

// complete sends one user prompt and returns the text of the first choice.
func (c *Client) complete(ctx context.Context, op, prompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: format,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	if err != nil {
		c.logger.Error("ai request failed", "op", op, "error", err, "latency_ms", latency.Milliseconds())
		return "", fmt.Errorf("ai: %s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai: %s: empty response", op)
	}

	c.logger.Debug("ai request completed",
		"op", op,
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

func jsonFormat(name string, schema json.Marshaler) *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: schema,
		},
	}
}

func (c *Client) GenerateStudyGuide(ctx context.Context, topic string) (string, error) {
	return c.complete(ctx, "study guide", guidePrompt(topic), nil)
}

func (c *Client) GenerateQuiz(ctx context.Context, topic string) (model.Quiz, error) {
	content, err := c.complete(ctx, "quiz", quizPrompt(topic), jsonFormat("quiz", &quizSchema))
	if err != nil {
		return nil, err
	}

	var quiz model.Quiz
	if err := decodeList(content, "questions", &quiz); err != nil {
		return nil, fmt.Errorf("ai: quiz: %w", err)
	}
	if len(quiz) == 0 {
		return nil, errors.New("ai: quiz: no questions returned")
	}
	return quiz, nil
}

func (c *Client) CheckAnswers(ctx context.Context, topic string, quiz model.Quiz, answers []*string) ([]model.AnswerFeedback, error) {
	quizJSON, err := json.MarshalIndent(quiz, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ai: encoding quiz: %w", err)
	}
	answersJSON, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ai: encoding answers: %w", err)
	}

	prompt := gradingPrompt(topic, string(quizJSON), string(answersJSON))
	content, err := c.complete(ctx, "grading", prompt, jsonFormat("feedback", &feedbackSchema))
	if err != nil {
		return nil, err
	}

	var results []model.AnswerFeedback
	if err := decodeList(content, "results", &results); err != nil {
		return nil, fmt.Errorf("ai: grading: %w", err)
	}
	if len(results) != len(quiz) {
		return nil, fmt.Errorf("ai: grading: got %d results for %d questions", len(results), len(quiz))
	}
	return results, nil
}

// decodeList reads a JSON list that the model returned either wrapped in an
// object under field or as a bare array.
func decodeList(content, field string, dst any) error {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "[") {
		return json.Unmarshal([]byte(content), dst)
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	raw, ok := wrapper[field]
	if !ok {
		return fmt.Errorf("response has no %q field", field)
	}
	return json.Unmarshal(raw, dst)
}

// =========================================================================
// CHAT
// =========================================================================

// NewChat starts a conversation. Sessions are independent of each other.
func (c *Client) NewChat(systemInstruction string) ChatSession {
	return &chatSession{
		client:      c,
		instruction: systemInstruction,
	}
}

type chatSession struct {
	client      *Client
	instruction string

	mu      sync.Mutex
	history []model.ChatMessage
}

func (s *chatSession) History() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.history...)
}

// messages builds the request transcript: instruction, history, new message.
func (s *chatSession) messages(message string) []openai.ChatCompletionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]openai.ChatCompletionMessage, 0, len(s.history)+2)
	if s.instruction != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s.instruction})
	}
	for _, m := range s.history {
		role := openai.ChatMessageRoleUser
		if m.Role == model.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	return append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
}

func (s *chatSession) SendStream(ctx context.Context, message string) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(chunks)

		req := openai.ChatCompletionRequest{
			Model:    s.client.model,
			Messages: s.messages(message),
			Stream:   true,
		}

		stream, err := s.client.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			s.client.logger.Error("ai chat stream failed to start", "error", err)
			errs <- fmt.Errorf("ai: chat: %w", err)
			return
		}
		defer stream.Close()

		var reply strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				s.client.logger.Error("ai chat stream broke", "error", err)
				errs <- fmt.Errorf("ai: chat: %w", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			chunk := resp.Choices[0].Delta.Content
			if chunk == "" {
				continue
			}
			reply.WriteString(chunk)

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}

		s.mu.Lock()
		s.history = append(s.history,
			model.ChatMessage{Role: model.RoleUser, Text: message},
			model.ChatMessage{Role: model.RoleModel, Text: reply.String()},
		)
		s.mu.Unlock()
	}()

	return chunks, errs
}
