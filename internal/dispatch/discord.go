package dispatch

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordMessenger adapts a discordgo session to the Messenger interface
// and to the role side effects of the ticket workflow
type DiscordMessenger struct {
	session *discordgo.Session
}

func NewDiscordMessenger(session *discordgo.Session) *DiscordMessenger {
	return &DiscordMessenger{session: session}
}

func (m *DiscordMessenger) Send(channelID string, content string, embeds []*discordgo.MessageEmbed) (string, error) {
	message, err := m.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Embeds:  embeds,
	})
	if err != nil {
		return "", translate(err)
	}
	return message.ID, nil
}

func (m *DiscordMessenger) Edit(ref MessageRef, content string, embeds []*discordgo.MessageEmbed) error {
	edit := discordgo.NewMessageEdit(ref.ChannelID, ref.MessageID)
	edit.Content = &content
	edit.Embeds = &embeds
	if _, err := m.session.ChannelMessageEditComplex(edit); err != nil {
		return translate(err)
	}
	return nil
}

func (m *DiscordMessenger) Delete(ref MessageRef) error {
	if err := m.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID); err != nil {
		return translate(err)
	}
	return nil
}

// GrantRole assigns a guild role to a member
func (m *DiscordMessenger) GrantRole(guildID string, userID string, roleID string) error {
	if err := m.session.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		return fmt.Errorf("could not grant role %s to user %s: %w", roleID, userID, err)
	}
	return nil
}

// translate maps the Discord "Unknown Message" REST error onto
// ErrStaleReference so callers can trigger their recovery path
func translate(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %v", ErrStaleReference, err)
		}
	}
	return err
}
