package command

import (
	"github.com/bwmarrin/discordgo"

	"quaver/internal/music"
	"quaver/internal/storage"
)

// Deps is the shared dependency set handed to every command at dispatch
// time. Commands stay stateless; everything they need travels in the
// interaction context.
type Deps struct {
	Sessions *music.Registry
	History  *storage.Storage
	Resolver music.Resolver
	Voice    VoiceStateFinder
}

// VoiceState identifies the voice channel a user currently occupies.
type VoiceState struct {
	GuildID   string
	ChannelID string
	UserID    string
}

// VoiceStateFinder reports where a user is connected, if anywhere.
type VoiceStateFinder interface {
	FindUserVoiceState(guildID, userID string) (*VoiceState, error)
}

// SlashContext is passed to commands triggered by slash interactions.
type SlashContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Deps    *Deps
}

// ComponentContext is passed to commands handling message component
// interactions (buttons, select menus).
type ComponentContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Deps    *Deps
}

// Command is the minimal surface every command implements.
type Command interface {
	Name() string
	Description() string
	Run(ctx interface{}) error
}

// SlashProvider is implemented by commands that expose a slash
// command definition for registration with Discord.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// ComponentHandler is implemented by commands that own message
// components. Component custom IDs are routed by command name prefix.
type ComponentHandler interface {
	Component(ctx *ComponentContext, customID string) error
}
