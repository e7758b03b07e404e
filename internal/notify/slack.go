package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// BotAPI abstracts the Slack API client for testing.
type BotAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts notices to a channel.
type SlackNotifier struct {
	api     BotAPI
	channel string
	logger  zerolog.Logger
}

// NewSlackNotifier creates a notifier using a bot token.
func NewSlackNotifier(botToken, channel string, logger zerolog.Logger) *SlackNotifier {
	return NewSlackNotifierWithAPI(slack.New(botToken), channel, logger)
}

// NewSlackNotifierWithAPI creates a notifier over an existing client.
func NewSlackNotifierWithAPI(api BotAPI, channel string, logger zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		api:     api,
		channel: channel,
		logger:  logger.With().Str("component", "slack").Logger(),
	}
}

// Notify posts n as a Block Kit message.
func (s *SlackNotifier) Notify(ctx context.Context, n Notice) error {
	_, ts, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(fmt.Sprintf("[%s] %s", n.Level, n.Title), false),
		slack.MsgOptionBlocks(BuildNoticeBlocks(n)...),
	)
	if err != nil {
		return fmt.Errorf("slack notify: %w", err)
	}
	s.logger.Debug().Str("channel", s.channel).Str("ts", ts).Str("title", n.Title).Msg("Notice posted")
	return nil
}

// BuildNoticeBlocks renders a notice: a header section, the message, and a
// context line with the request fields.
func BuildNoticeBlocks(n Notice) []slack.Block {
	title := fmt.Sprintf("%s *%s*", levelEmoji(n.Level), n.Title)
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, title, false, false),
			nil, nil,
		),
	}
	if n.Message != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "```"+truncate(n.Message, 2500)+"```", false, false),
			nil, nil,
		))
	}

	var fields []string
	if n.Source != "" {
		fields = append(fields, "source: "+n.Source)
	}
	for _, k := range n.sortedKeys() {
		fields = append(fields, k+": "+n.Context[k])
	}
	if len(fields) > 0 {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(fields, " | "), false, false),
		))
	}
	return blocks
}

func levelEmoji(l Level) string {
	switch l {
	case LevelError:
		return ":rotating_light:"
	case LevelWarning:
		return ":warning:"
	default:
		return ":information_source:"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
