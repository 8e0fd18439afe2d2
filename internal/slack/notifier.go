package slack

import (
	"context"
	"fmt"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
	slackapi "github.com/slack-go/slack"
)

// Notifier posts rendered reminder text to Slack channels.
type Notifier struct {
	client contract.SlackClient
}

func NewNotifier(client contract.SlackClient) *Notifier {
	return &Notifier{client: client}
}

// SendMessage posts text as the bot. The text is Slack mrkdwn and is not escaped.
func (n *Notifier) SendMessage(ctx context.Context, channelID, text string) error {
	_, _, err := n.client.PostMessageContext(ctx, channelID,
		slackapi.MsgOptionText(text, false),
		slackapi.MsgOptionAsUser(false),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to channel %s: %w", channelID, err)
	}
	return nil
}
