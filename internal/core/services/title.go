package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// Ensure titleService implements TitleService
var _ driving.TitleService = (*titleService)(nil)

const ellipsis = "..."

// TitleServiceConfig configures chat title generation
type TitleServiceConfig struct {
	// MaxLength is the rune budget of a title, ellipsis included
	MaxLength int

	// Language the model is asked to answer in
	Language string

	// Timeout bounds the single chat-completion call
	Timeout time.Duration

	// EmptyTitle is returned for blank messages
	EmptyTitle string

	Logger *slog.Logger
}

// DefaultTitleServiceConfig returns the defaults used for student chats.
func DefaultTitleServiceConfig() TitleServiceConfig {
	return TitleServiceConfig{
		MaxLength:  domain.DefaultTitleMaxLength,
		Language:   domain.DefaultTitleLanguage,
		Timeout:    15 * time.Second,
		EmptyTitle: "New chat",
		Logger:     slog.Default(),
	}
}

// titleService implements the TitleService interface
type titleService struct {
	services *runtime.Services
	config   TitleServiceConfig
	logger   *slog.Logger
}

// NewTitleService creates a TitleService backed by the current chat service
func NewTitleService(services *runtime.Services, config TitleServiceConfig) driving.TitleService {
	defaults := DefaultTitleServiceConfig()
	if config.MaxLength < len(ellipsis)+1 {
		config.MaxLength = defaults.MaxLength
	}
	if config.Language == "" {
		config.Language = defaults.Language
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.EmptyTitle == "" {
		config.EmptyTitle = defaults.EmptyTitle
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &titleService{services: services, config: config, logger: logger}
}

// GenerateTitle asks the chat model for a one-line label.
// Any model failure degrades to a truncated copy of the message.
func (s *titleService) GenerateTitle(ctx context.Context, message string) string {
	collapsed := strings.Join(strings.Fields(message), " ")
	if collapsed == "" {
		return s.config.EmptyTitle
	}
	fallback := truncateRunes(collapsed, s.config.MaxLength)

	chat := s.services.ChatService()
	if chat == nil {
		s.logger.Debug("chat service not configured, using fallback title")
		return fallback
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	reply, err := chat.Complete(callCtx, s.titlePrompt(collapsed), driven.ChatOptions{Temperature: 0.2, MaxTokens: 64, SingleAttempt: true})
	if err != nil {
		s.logger.Warn("title generation failed, using fallback", "error", err)
		return fallback
	}

	title := cleanTitle(reply)
	if title == "" {
		s.logger.Warn("title generation returned an empty reply, using fallback")
		return fallback
	}
	return truncateRunes(title, s.config.MaxLength)
}

func (s *titleService) titlePrompt(message string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{
			Role: domain.ChatRoleSystem,
			Content: "You are an academic assistant that names study conversations. " +
				"Reply with the title only.",
		},
		{
			Role: domain.ChatRoleUser,
			Content: fmt.Sprintf(
				"Write a title in %s for a conversation that starts with the student question below.\n"+
					"- Reflect the academic topic of the question.\n"+
					"- At most 12 words, easy to remember.\n"+
					"- Do not use the words bot, AI, assistant, question or conversation.\n"+
					"- Prefer noun or verb phrases. No punctuation.\n"+
					"- Return exactly one line.\n\n"+
					"Student question:\n%q",
				s.config.Language, message),
		},
	}
}

// cleanTitle keeps the first non-empty line without surrounding quotes.
func cleanTitle(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "\"'“”*#")
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			return line
		}
	}
	return ""
}

// truncateRunes caps s at max runes, replacing the tail with an ellipsis.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max-len(ellipsis)]), " ") + ellipsis
}
