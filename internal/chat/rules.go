package chat

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Rule ответ по ключевым словам
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Response string   `yaml:"response"`
}

// RuleBook заготовленные ответы, которые используются без языковой модели
// или при ее отказе
type RuleBook struct {
	Topics     map[string]string `yaml:"topics"`
	TopicHints map[string]string `yaml:"topic_hints"`
	Rules      []Rule            `yaml:"rules"`
	Fallback   string            `yaml:"fallback"`
}

// LoadRuleBook читает правила из YAML-файла; пустой путь означает встроенные правила
func LoadRuleBook(path string) (*RuleBook, error) {
	data := defaultRules
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read chat rules: %w", err)
		}
	}
	return ParseRuleBook(data)
}

// ParseRuleBook разбирает правила и нормализует ключевые слова к нижнему регистру
func ParseRuleBook(data []byte) (*RuleBook, error) {
	var rb RuleBook
	if err := yaml.Unmarshal(data, &rb); err != nil {
		return nil, fmt.Errorf("parse chat rules: %w", err)
	}
	if strings.TrimSpace(rb.Fallback) == "" {
		return nil, fmt.Errorf("parse chat rules: fallback response is required")
	}
	for i := range rb.Rules {
		if len(rb.Rules[i].Keywords) == 0 {
			return nil, fmt.Errorf("parse chat rules: rule %d has no keywords", i)
		}
		for j, kw := range rb.Rules[i].Keywords {
			rb.Rules[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	return &rb, nil
}

// Match возвращает ответ первого правила, ключевое слово которого встречается
// в сообщении, иначе ответ по умолчанию
func (rb *RuleBook) Match(message string) string {
	text := strings.ToLower(message)
	for _, rule := range rb.Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				return strings.TrimSpace(rule.Response)
			}
		}
	}
	return strings.TrimSpace(rb.Fallback)
}

// TopicPrompt вступительная реплика быстрого действия
func (rb *RuleBook) TopicPrompt(topic string) (string, bool) {
	p, ok := rb.Topics[topic]
	return p, ok
}

// TopicHint уточнение системного промпта для темы
func (rb *RuleBook) TopicHint(topic string) string {
	return rb.TopicHints[topic]
}
