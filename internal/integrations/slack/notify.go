package slackbot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"
)

// maxSectionText is Slack's limit for a section block's text.
const maxSectionText = 3000

// Notifier announces published digests in one channel.
type Notifier struct {
	api     *slack.Client
	channel string
}

// NewNotifier builds a notifier. apiURL is only set in tests.
func NewNotifier(token, channel, apiURL string) *Notifier {
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Notifier{api: slack.New(token, opts...), channel: channel}
}

// Notify posts a link to the published digest followed by one section per
// summary entry.
func (n *Notifier) Notify(ctx context.Context, title, url string, summary []string) error {
	blocks := buildNotifyBlocks(title, url, summary)
	_, ts, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(fmt.Sprintf("%s %s", title, url), false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("posting digest to slack channel %s: %w", n.channel, err)
	}
	log.Printf("slack notify channel=%s ts=%s summary=%d", n.channel, ts, len(summary))
	return nil
}

func buildNotifyBlocks(title, url string, summary []string) []slack.Block {
	header := title
	if url != "" {
		header = fmt.Sprintf("<%s|%s>", url, escape(title))
	}
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*"+header+"*", false, false),
			nil, nil,
		),
	}
	for _, s := range summary {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		s = truncate(s, maxSectionText)
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, s, false, false),
			nil, nil,
		))
	}
	return blocks
}

// truncate shortens s to at most max bytes, cutting on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// escape applies Slack's mrkdwn control character escaping.
func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
