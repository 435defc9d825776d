package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// maxMessageRunes stays below Telegram's 4096 character message limit.
const maxMessageRunes = 4000

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	cfg    config.TelegramConfig
	client *http.Client
	logger *slog.Logger

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier keeps the bot settings. The bot itself is created on first delivery.
func NewNotifier(cfg config.TelegramConfig, client *http.Client, logger *slog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{cfg: cfg, client: client, logger: logger.With("component", "telegram")}
}

// Name identifies the notifier in run reports.
func (n *Notifier) Name() string { return "telegram" }

// Deliver posts the digest as one or more plain text messages.
func (n *Notifier) Deliver(ctx context.Context, d domain.Digest) error {
	if !n.cfg.Enabled() {
		return &domain.ConfigurationError{Reason: "telegram needs a bot token and a chat id"}
	}

	bot, err := n.api()
	if err != nil {
		return err
	}

	chunks := Chunk(Format(d), maxMessageRunes)
	for i, text := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := bot.Send(n.message(text)); err != nil {
			return fmt.Errorf("send telegram message %d/%d: %w", i+1, len(chunks), err)
		}
	}

	n.logger.Info("digest posted", "run_id", d.RunID, "messages", len(chunks))
	return nil
}

func (n *Notifier) api() (*tgbotapi.BotAPI, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.bot != nil {
		return n.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(n.cfg.BotToken, n.cfg.Endpoint, n.client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	n.bot = bot
	return bot, nil
}

func (n *Notifier) message(text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(n.cfg.ChatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(n.cfg.ChatID, text)
	}
	msg.DisableWebPagePreview = true
	return msg
}

// Format renders the digest as plain text: a heading and one block per article.
func Format(d domain.Digest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Daily News Digest - %s\n", d.Date.Format(time.DateOnly))
	for i, a := range d.Articles {
		fmt.Fprintf(&sb, "\n%d. %s\n%s\n%s\n", i+1, a.Title, a.SourceID, a.URL)
	}
	return sb.String()
}

// Chunk splits text into pieces of at most limit runes, breaking on newlines where it can.
func Chunk(text string, limit int) []string {
	var out []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if rest := strings.TrimRight(string(runes), "\n"); rest != "" {
		out = append(out, rest)
	}
	return out
}
