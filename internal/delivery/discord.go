package delivery

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts alerts to a channel through the bot REST API; no gateway connection is opened.
type Discord struct {
	sender    channelSender
	channelID string
}

func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &Discord{sender: session, channelID: channelID}, nil
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Deliver(ctx context.Context, a BudgetAlert) error {
	content := fmt.Sprintf("⚠️ **Budget Limit Exceeded**\n%s\nOver budget by **%s %s**.",
		a.Message, a.Overage.String(), a.Currency)
	_, err := d.sender.ChannelMessageSend(d.channelID, content, discordgo.WithContext(ctx))
	return err
}
