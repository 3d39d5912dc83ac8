package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Session is the part of a Discord session the notifier needs
type Session interface {
	ChannelMessageSend(channelID string, content string) (*discordgo.Message, error)
}

// DiscordSession implements Session using discordgo.Session
type DiscordSession struct {
	*discordgo.Session
}

// NewSession creates a bot session for token
func NewSession(token string) (*DiscordSession, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &DiscordSession{Session: s}, nil
}

// Ensure DiscordSession implements Session
var _ Session = (*DiscordSession)(nil)

// ChannelMessageSend implements Session
func (s *DiscordSession) ChannelMessageSend(channelID string, content string) (*discordgo.Message, error) {
	return s.Session.ChannelMessageSend(channelID, content)
}

// DiscordNotifier posts events to an admin channel
type DiscordNotifier struct {
	session   Session
	channelID string
}

// NewDiscordNotifier creates a notifier posting to channelID
func NewDiscordNotifier(session Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{session: session, channelID: channelID}
}

// Notify implements Notifier
func (n *DiscordNotifier) Notify(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.session.ChannelMessageSend(n.channelID, Format(event)); err != nil {
		return fmt.Errorf("error sending notification: %w", err)
	}
	return nil
}
