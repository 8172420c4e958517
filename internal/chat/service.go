package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloud-ru/finassist-go/internal/metrics"
	"github.com/yuin/goldmark"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrEmptyMessage пустое сообщение пользователя
	ErrEmptyMessage = errors.New("message is required")
	// ErrUnknownTopic неизвестная тема быстрого действия
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrUpstream модель не ответила, а заготовленных ответов нет
	ErrUpstream = errors.New("language model request failed")
)

// ErrorResponse текст, который клиент показывает при сбое чата
const ErrorResponse = "I'm sorry, I'm having trouble processing your request. Please try again."

// SourceRules источник ответа, когда он взят из RuleBook
const SourceRules = "rules"

// SystemPrompt контекст финансового консультанта
const SystemPrompt = `You are a professional financial advisor AI assistant. Your role is to:
1. Help users with investment planning, loan management, and financial goals
2. Provide accurate, personalized financial advice
3. Use clear, professional language
4. Consider Indian financial context (INR currency, Indian tax laws, etc.)
5. Always prioritize user's financial safety and long-term goals

Key financial principles to follow:
- Emergency fund should be 6-12 months of expenses
- Debt-to-income ratio should be below 40%
- Diversify investments across asset classes
- Consider inflation in long-term planning
- Prioritize high-interest debt repayment`

// Request реплика пользователя. History используется только для новой сессии,
// когда клиент сам хранит переписку.
type Request struct {
	SessionID string    `json:"sessionId,omitempty"`
	Message   string    `json:"message"`
	History   []Message `json:"conversationHistory,omitempty"`
	Topic     string    `json:"topic,omitempty"`
}

// Reply ответ ассистента
type Reply struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
	HTML      string `json:"html"`
	Source    string `json:"source"`
}

// Service ведет диалог: модель, при ее отказе RuleBook
type Service struct {
	provider Provider
	rules    *RuleBook
	sessions *SessionStore
	timeout  time.Duration
	tracer   trace.Tracer
	logger   *slog.Logger
	md       goldmark.Markdown
}

// NewService собирает сервис. provider может быть nil, тогда все ответы берутся из rules;
// rules может быть nil, тогда ошибка модели возвращается как ErrUpstream.
func NewService(provider Provider, rules *RuleBook, sessions *SessionStore, timeout time.Duration, tracer trace.Tracer, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		rules:    rules,
		sessions: sessions,
		timeout:  timeout,
		tracer:   tracer,
		logger:   logger,
		md:       goldmark.New(),
	}
}

// Sessions хранилище сессий сервиса
func (s *Service) Sessions() *SessionStore { return s.sessions }

// Reply отвечает на сообщение пользователя и записывает обе реплики в сессию
func (s *Service) Reply(ctx context.Context, req Request) (*Reply, error) {
	ctx, span := s.tracer.Start(ctx, "chat.reply")
	defer span.End()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		span.SetStatus(codes.Error, ErrEmptyMessage.Error())
		return nil, ErrEmptyMessage
	}

	sess := s.sessions.Open(req.SessionID)
	if len(sess.History) == 0 && len(req.History) > 0 {
		history := req.History
		if over := len(history) - MaxHistory; over > 0 {
			history = history[over:]
		}
		s.sessions.Append(sess.ID, history...)
		sess.History = append([]Message(nil), history...)
	}
	if req.Topic != "" && req.Topic != sess.Topic {
		s.sessions.SetTopic(sess.ID, req.Topic)
		sess.Topic = req.Topic
	}

	span.SetAttributes(
		attribute.String("session_id", sess.ID),
		attribute.String("topic", sess.Topic),
		attribute.Int("history_len", len(sess.History)),
	)

	text, source, err := s.generate(ctx, Prompt{
		System:  s.systemPrompt(sess.Topic),
		History: sess.History,
		Message: message,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("source", source))

	s.sessions.Append(sess.ID, Message{Content: message, IsUser: true}, Message{Content: text})

	return &Reply{
		SessionID: sess.ID,
		Response:  text,
		HTML:      s.render(text),
		Source:    source,
	}, nil
}

// StartTopic переключает сессию на тему быстрого действия и возвращает вступительную реплику
func (s *Service) StartTopic(sessionID, topic string) (*Reply, error) {
	if s.rules == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	prompt, ok := s.rules.TopicPrompt(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	sess := s.sessions.Open(sessionID)
	s.sessions.SetTopic(sess.ID, topic)
	s.sessions.Append(sess.ID, Message{Content: prompt})

	return &Reply{
		SessionID: sess.ID,
		Response:  prompt,
		HTML:      s.render(prompt),
		Source:    SourceRules,
	}, nil
}

func (s *Service) generate(ctx context.Context, p Prompt) (string, string, error) {
	if s.provider == nil {
		if s.rules == nil {
			metrics.ChatRequests.WithLabelValues("none", "error").Inc()
			return "", "", ErrNoProvider
		}
		metrics.ChatRequests.WithLabelValues(SourceRules, "success").Inc()
		return s.rules.Match(p.Message), SourceRules, nil
	}

	name := s.provider.Name()
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.provider.Generate(callCtx, p)
	metrics.LLMLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(text) != "" {
		metrics.ChatRequests.WithLabelValues(name, "success").Inc()
		return strings.TrimSpace(text), name, nil
	}
	if err == nil {
		err = errors.New("empty response")
	}

	if s.rules == nil {
		metrics.ChatRequests.WithLabelValues(name, "error").Inc()
		s.logger.Error("language model request failed", "provider", name, "error", err)
		return "", "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	metrics.ChatRequests.WithLabelValues(name, "fallback").Inc()
	s.logger.Warn("language model request failed, answering from rules", "provider", name, "error", err)
	return s.rules.Match(p.Message), SourceRules, nil
}

func (s *Service) systemPrompt(topic string) string {
	if s.rules == nil || topic == "" {
		return SystemPrompt
	}
	if hint := s.rules.TopicHint(topic); hint != "" {
		return SystemPrompt + "\n\nCurrent topic: " + hint
	}
	return SystemPrompt
}

// render переводит markdown ответа в HTML; при ошибке возвращается пустая строка
func (s *Service) render(text string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		s.logger.Warn("markdown render failed", "error", err)
		return ""
	}
	return buf.String()
}
