package command

import "github.com/bwmarrin/discordgo"

// EmbedColor is the accent color used for every bot embed.
const EmbedColor = 0x274437

// Respond answers an interaction with a single embed.
func Respond(s *discordgo.Session, e *discordgo.InteractionCreate, text string) error {
	return respond(s, e, text, 0)
}

// RespondEphemeral answers an interaction with an embed only the
// invoking user can see.
func RespondEphemeral(s *discordgo.Session, e *discordgo.InteractionCreate, text string) error {
	return respond(s, e, text, discordgo.MessageFlagsEphemeral)
}

func respond(s *discordgo.Session, e *discordgo.InteractionCreate, text string, flags discordgo.MessageFlags) error {
	return s.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{Description: text, Color: EmbedColor}},
			Flags:  flags,
		},
	})
}

// RespondEmbed answers an interaction with a prebuilt embed.
func RespondEmbed(s *discordgo.Session, e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// RespondDeferred acknowledges an interaction so a slower reply can be
// delivered with EditResponse.
func RespondDeferred(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	return s.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// EditResponse rewrites the original interaction reply. Passing a
// non-nil components slice replaces the message components; an empty
// slice removes them.
func EditResponse(s *discordgo.Session, e *discordgo.InteractionCreate, text string, components []discordgo.MessageComponent) error {
	edit := &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{{Description: text, Color: EmbedColor}},
	}
	if components != nil {
		edit.Components = &components
	}
	_, err := s.InteractionResponseEdit(e.Interaction, edit)
	return err
}

// AckComponent acknowledges a component interaction without changing
// the message; the owning command edits it separately.
func AckComponent(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	return s.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}
