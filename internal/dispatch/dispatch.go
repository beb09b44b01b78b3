// Package dispatch routes inbound gateway events: it recognizes the
// question command, hands the extracted question to the generation client
// on a bounded worker pool, and sends the formatted answer back in order.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quailyquaily/gembird/internal/chunk"
	"github.com/quailyquaily/gembird/llm"
)

// CommandPrefix triggers generation; the text after it is the question.
const CommandPrefix = "$question "

const (
	usageMessage   = "Please ask a question after `$question`!"
	blockedMessage = "Sorry, I couldn't generate a response. This might be due to content filters. " +
		"Please try rephrasing your question."
	emptyReplyMessage = "(empty response)"
)

const helpMessage = "**gembird - Gemini relay bot**\n\n" +
	"Use `$question <your question>` to ask me anything!\n\n" +
	"Examples:\n" +
	"- `$question What is Go?`\n" +
	"- `$question Explain quantum computing`\n" +
	"- `$question Tell me a joke`\n\n" +
	"I'm powered by Google Gemini and ready to help!"

// Event is one inbound gateway message, reduced to what routing needs.
type Event struct {
	MessageID      string
	ChannelID      string
	AuthorID       string
	AuthorUsername string
	Content        string
	AuthorIsBot    bool
}

// Sender is the outbound capability of the gateway adapter.
type Sender interface {
	// SendText delivers one message; text must fit the transport limit.
	SendText(ctx context.Context, channelID, text string) error
	// StartTyping keeps an activity indicator alive until the returned
	// stop function is called.
	StartTyping(ctx context.Context, channelID string) (stop func())
}

type Options struct {
	Logger *slog.Logger
	Client llm.Client
	Sender Sender
	// Events is the single inbound channel the gateway adapter feeds.
	// Optional when the caller drives Dispatch directly.
	Events <-chan Event
	// BotID is the bot's own user ID; events from it are ignored.
	BotID          string
	MessageLimit   int
	MaxConcurrency int
}

type Dispatcher struct {
	logger *slog.Logger
	client llm.Client
	sender Sender
	botID  string
	limit  int
	events <-chan Event
	sem    chan struct{}
	wg     sync.WaitGroup
}

func New(opts Options) (*Dispatcher, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("generation client is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	limit := opts.MessageLimit
	if limit <= 0 {
		limit = chunk.MessageLimit
	}
	maxConc := opts.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 3
	}
	return &Dispatcher{
		logger: opts.Logger,
		client: opts.Client,
		sender: opts.Sender,
		botID:  opts.BotID,
		limit:  limit,
		events: opts.Events,
		sem:    make(chan struct{}, maxConc),
	}, nil
}

// Run consumes inbound events until ctx is canceled, then drains in-flight
// work. Issued generation calls always run to completion.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.Drain()
			return
		case ev := <-d.events:
			d.Dispatch(ev)
		}
	}
}

// Drain blocks until all in-flight command handlers have finished.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

// Dispatch routes one inbound event. Command events are handled on their
// own goroutine so a slow generation call never blocks event intake.
func (d *Dispatcher) Dispatch(ev Event) {
	if ev.AuthorIsBot {
		return
	}
	if d.botID != "" && ev.AuthorID == d.botID {
		return
	}
	if !strings.HasPrefix(ev.Content, CommandPrefix) {
		return
	}
	arg := strings.TrimSpace(ev.Content[len(CommandPrefix):])

	logger := d.logger.With(
		"request_id", "req_"+uuid.NewString(),
		"channel_id", ev.ChannelID,
	)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sem <- struct{}{}
		defer func() { <-d.sem }()

		switch {
		case arg == "":
			d.send(logger, ev.ChannelID, usageMessage)
		case strings.EqualFold(arg, "help"):
			d.send(logger, ev.ChannelID, helpMessage)
		default:
			d.answer(logger, ev, arg)
		}
	}()
}

// answer performs the full exchange for one question: typing indicator on,
// one generation call, then exactly one user-visible outcome: the chunked
// answer, an apology for a block, or a generic error message.
func (d *Dispatcher) answer(logger *slog.Logger, ev Event, question string) {
	ctx := context.Background() // runs to completion even during shutdown

	stopTyping := d.sender.StartTyping(ctx, ev.ChannelID)
	defer stopTyping()

	reply, err := d.client.Generate(ctx, question)
	switch {
	case err != nil:
		logger.Error("generate_error", "error", err.Error())
		d.send(logger, ev.ChannelID, "Sorry, I encountered an error: "+err.Error())

	case reply.Blocked:
		logger.Warn("generate_blocked",
			"reason", reply.BlockReason,
			"safety_ratings", ratingsAttr(reply.SafetyRatings),
		)
		d.send(logger, ev.ChannelID, blockedMessage)

	default:
		text := reply.Text
		if strings.TrimSpace(text) == "" {
			text = emptyReplyMessage
		}
		for _, part := range chunk.Format(text, d.limit) {
			if !d.send(logger, ev.ChannelID, part) {
				return
			}
		}
		logger.Info("answered",
			"author", ev.AuthorUsername,
			"question", truncate(question, 50),
			"duration", reply.Duration.Round(time.Millisecond).String(),
			"output_tokens", reply.Usage.OutputTokens,
		)
	}
}

func (d *Dispatcher) send(logger *slog.Logger, channelID, text string) bool {
	if err := d.sender.SendText(context.Background(), channelID, text); err != nil {
		logger.Warn("send_error", "error", err.Error())
		return false
	}
	return true
}

func ratingsAttr(ratings []llm.SafetyRating) []string {
	out := make([]string, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, r.Category+"="+r.Probability)
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
