package dispatch

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"warerabot/internal/templates"
)

// MessageRef identifies a message this bot posted, so it can be edited or
// deleted later. The zero value means "never posted"
type MessageRef struct {
	ChannelID string
	MessageID string
}

func (ref MessageRef) IsZero() bool {
	return ref.ChannelID == "" && ref.MessageID == ""
}

func (ref MessageRef) String() string {
	return fmt.Sprintf("%s/%s", ref.ChannelID, ref.MessageID)
}

// Message is the rendered content handed to the dispatcher
type Message struct {
	Content string
	Embeds  []templates.Embed
}

// Messenger is the outbound half of the platform boundary.
// DiscordMessenger implements it against a live gateway session;
// tests implement it in memory
type Messenger interface {
	Send(channelID string, content string, embeds []*discordgo.MessageEmbed) (string, error)
	Edit(ref MessageRef, content string, embeds []*discordgo.MessageEmbed) error
	Delete(ref MessageRef) error
}

// Dispatcher turns rendered templates into platform messages.
// It owns the embed conversion, including the color table that maps the
// color names used in template files to actual values
type Dispatcher struct {
	messenger Messenger
	colors    map[string]int
}

const defaultColor = 0xffb612

func NewDispatcher(messenger Messenger, colors map[string]int) *Dispatcher {
	copied := make(map[string]int, len(colors))
	for name, value := range colors {
		copied[name] = value
	}
	return &Dispatcher{messenger: messenger, colors: copied}
}

// Post sends msg to the given channel and returns the reference of the
// created message
func (d *Dispatcher) Post(channelID string, msg Message) (MessageRef, error) {
	messageID, err := d.messenger.Send(channelID, msg.Content, d.buildEmbeds(msg.Embeds))
	if err != nil {
		return MessageRef{}, fmt.Errorf("could not post to channel %s: %w", channelID, err)
	}
	ref := MessageRef{ChannelID: channelID, MessageID: messageID}
	log.Debug().Msg(fmt.Sprintf("Posted message %s", ref))
	return ref, nil
}

// Update edits the message at ref in place. If the underlying message is
// gone the error wraps ErrStaleReference and the caller is expected to post
// fresh and replace its stored reference
func (d *Dispatcher) Update(ref MessageRef, msg Message) error {
	if err := d.messenger.Edit(ref, msg.Content, d.buildEmbeds(msg.Embeds)); err != nil {
		return fmt.Errorf("could not update message %s: %w", ref, err)
	}
	log.Debug().Msg(fmt.Sprintf("Updated message %s", ref))
	return nil
}

// Retract deletes the message at ref. Retracting a message that is already
// gone is a no-op, not an error
func (d *Dispatcher) Retract(ref MessageRef) error {
	if ref.IsZero() {
		return nil
	}
	err := d.messenger.Delete(ref)
	if errors.Is(err, ErrStaleReference) {
		log.Debug().Msg(fmt.Sprintf("Message %s already gone, nothing to retract", ref))
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not retract message %s: %w", ref, err)
	}
	log.Debug().Msg(fmt.Sprintf("Retracted message %s", ref))
	return nil
}

func (d *Dispatcher) buildEmbeds(embeds []templates.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, embed := range embeds {
		built := &discordgo.MessageEmbed{
			Title:       embed.Title,
			Description: embed.Description,
			Color:       d.color(embed.Color),
		}
		if embed.Thumbnail != "" {
			built.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: embed.Thumbnail}
		}
		if embed.Image != "" {
			built.Image = &discordgo.MessageEmbedImage{URL: embed.Image}
		}
		if embed.Footer != "" {
			built.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
		}
		for _, field := range embed.Fields {
			built.Fields = append(built.Fields, &discordgo.MessageEmbedField{
				Name:   field.Name,
				Value:  field.Value,
				Inline: field.Inline,
			})
		}
		out = append(out, built)
	}
	return out
}

// color resolves a template color to a value: first the configured color
// names, then hex literals like "0xffb612"
func (d *Dispatcher) color(name string) int {
	if name == "" {
		name = "primary"
	}
	if value, ok := d.colors[name]; ok {
		return value
	}
	if value, err := strconv.ParseInt(name, 0, 32); err == nil {
		return int(value)
	}
	if value, ok := d.colors["primary"]; ok {
		return value
	}
	return defaultColor
}
