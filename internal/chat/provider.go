package chat

import (
	"context"
	"errors"
)

// ErrNoProvider языковая модель не настроена
var ErrNoProvider = errors.New("no language model provider configured")

// Message одна реплика диалога
type Message struct {
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

// Prompt запрос к языковой модели: системный контекст, предыдущие реплики и новое сообщение
type Prompt struct {
	System  string
	History []Message
	Message string
}

// Provider отправляет запрос и получает текст ответа
type Provider interface {
	Name() string
	Generate(ctx context.Context, p Prompt) (string, error)
}
