// Package discord adapts the Discord gateway to the dispatcher: inbound
// MessageCreate events become dispatch.Events, outbound sends and the
// typing indicator go back through the session. Connection lifecycle and
// reconnects are discordgo's own concern.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/quailyquaily/gembird/internal/chunk"
	"github.com/quailyquaily/gembird/internal/dispatch"
)

type Options struct {
	Token  string
	Logger *slog.Logger
	// Events receives one dispatch.Event per inbound message. The handler
	// blocks on a full channel rather than dropping.
	Events chan<- dispatch.Event
	// MessageLimit guards outbound sends; defaults to chunk.MessageLimit.
	MessageLimit int
	// TypingInterval is how often the typing indicator is refreshed.
	// Discord's indicator expires after ~10s; default 8s.
	TypingInterval time.Duration
}

type Gateway struct {
	session        *discordgo.Session
	logger         *slog.Logger
	events         chan<- dispatch.Event
	limit          int
	typingInterval time.Duration
}

func New(opts Options) (*Gateway, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.Events == nil {
		return nil, fmt.Errorf("events channel is required")
	}

	session, err := discordgo.New("Bot " + strings.TrimSpace(opts.Token))
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	limit := opts.MessageLimit
	if limit <= 0 {
		limit = chunk.MessageLimit
	}
	typingInterval := opts.TypingInterval
	if typingInterval <= 0 {
		typingInterval = 8 * time.Second
	}

	return &Gateway{
		session:        session,
		logger:         opts.Logger,
		events:         opts.Events,
		limit:          limit,
		typingInterval: typingInterval,
	}, nil
}

// Run opens the gateway connection and blocks until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	g.session.AddHandler(g.onReady)
	g.session.AddHandler(g.onMessageCreate)

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	<-ctx.Done()
	return g.session.Close()
}

// BotID returns the bot's own user ID once the session is ready.
func (g *Gateway) BotID() string {
	if g.session.State != nil && g.session.State.User != nil {
		return g.session.State.User.ID
	}
	return ""
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	names := make([]string, 0, len(r.Guilds))
	for _, guild := range r.Guilds {
		if guild != nil && guild.Name != "" {
			names = append(names, guild.Name)
		}
	}
	g.logger.Info("discord_ready",
		"bot_user", r.User.Username,
		"bot_id", r.User.ID,
		"guild_count", len(r.Guilds),
		"guilds", strings.Join(names, ", "),
	)
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ev, ok := eventFromMessage(s, m)
	if !ok {
		return
	}
	g.events <- ev
}

// eventFromMessage converts an inbound message, filtering the bot's own
// messages at the source so they never reach the dispatcher.
func eventFromMessage(s *discordgo.Session, m *discordgo.MessageCreate) (dispatch.Event, bool) {
	if m == nil || m.Author == nil {
		return dispatch.Event{}, false
	}
	if s != nil && s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return dispatch.Event{}, false
	}
	return dispatch.Event{
		MessageID:      m.ID,
		ChannelID:      m.ChannelID,
		AuthorID:       m.Author.ID,
		AuthorUsername: m.Author.Username,
		Content:        m.Content,
		AuthorIsBot:    m.Author.Bot,
	}, true
}

// SendText delivers one message, rejecting oversized text before it
// reaches the API. Callers are expected to chunk beforehand.
func (g *Gateway) SendText(ctx context.Context, channelID, text string) error {
	if n := utf8.RuneCountInString(text); n > g.limit {
		return fmt.Errorf("message is %d characters, limit is %d", n, g.limit)
	}
	_, err := g.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// StartTyping shows the typing indicator and keeps it alive on a ticker
// until the returned stop function is called.
func (g *Gateway) StartTyping(ctx context.Context, channelID string) func() {
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(g.typingInterval)
	done := make(chan struct{})

	go func() {
		_ = g.session.ChannelTyping(channelID, discordgo.WithContext(ctx))
		for {
			select {
			case <-ticker.C:
				_ = g.session.ChannelTyping(channelID, discordgo.WithContext(ctx))
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		select {
		case <-done:
		default:
			close(done)
		}
		ticker.Stop()
	}
}
