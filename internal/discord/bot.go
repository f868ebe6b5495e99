package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"quaver/internal/command"
	"quaver/internal/config"
	"quaver/internal/music"
	"quaver/internal/sources/youtube"
	"quaver/internal/storage"
	"quaver/internal/version"
)

// Bot owns the gateway session and routes Discord events to commands
// and playback sessions.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	sessions *music.Registry
	deps     *command.Deps

	regMu      sync.Mutex
	registered map[string]bool
}

func NewBot(cfg *config.Config, store *storage.Storage) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages

	b := &Bot{dg: dg, cfg: cfg, registered: make(map[string]bool)}

	resolver := youtube.New()
	b.sessions = music.NewRegistry(music.Deps{
		Provider: &voiceProvider{dg: dg},
		Sinks:    sinkFactory{},
		Resolver: resolver,
		Notify:   newChannelNotifier(dg),
		History:  store,
	}, music.Config{
		PreviewLimit:     cfg.PreviewLimit,
		SearchLimit:      cfg.SearchLimit,
		SelectionTimeout: cfg.SelectionTimeout,
		ReconnectGrace:   cfg.ReconnectGrace,
	})
	b.deps = &command.Deps{
		Sessions: b.sessions,
		History:  store,
		Resolver: resolver,
		Voice:    b,
	}
	return b, nil
}

// Run opens the gateway and blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	log.Info().Str("version", version.Version).Msg("bot is up")

	<-ctx.Done()
	return b.dg.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("username", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("gateway ready")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.regMu.Lock()
	done := b.registered[g.ID]
	b.registered[g.ID] = true
	b.regMu.Unlock()
	if done {
		return
	}

	var defs []*discordgo.ApplicationCommand
	for _, cmd := range command.All() {
		if p, ok := cmd.(command.SlashProvider); ok {
			if def := p.SlashDefinition(); def != nil {
				defs = append(defs, def)
			}
		}
	}
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, g.ID, defs); err != nil {
		log.Error().Err(err).Str("guild_id", g.ID).Msg("register slash commands failed")
		return
	}
	log.Info().Str("guild_id", g.ID).Int("commands", len(defs)).Msg("slash commands registered")
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, e *discordgo.InteractionCreate) {
	switch e.Type {
	case discordgo.InteractionApplicationCommand:
		name := e.ApplicationCommandData().Name
		cmd, ok := command.Get(name)
		if !ok {
			log.Warn().Str("command", name).Msg("unknown slash command")
			return
		}
		go func() {
			if err := cmd.Run(&command.SlashContext{Session: s, Event: e, Deps: b.deps}); err != nil {
				log.Error().Err(err).Str("command", name).Msg("command failed")
			}
		}()

	case discordgo.InteractionMessageComponent:
		customID := e.MessageComponentData().CustomID
		for _, cmd := range command.All() {
			if !strings.HasPrefix(customID, cmd.Name()) {
				continue
			}
			h, ok := cmd.(command.ComponentHandler)
			if !ok {
				continue
			}
			go func() {
				if err := h.Component(&command.ComponentContext{Session: s, Event: e, Deps: b.deps}, customID); err != nil {
					log.Error().Err(err).Str("custom_id", customID).Msg("component handler failed")
				}
			}()
			return
		}
		log.Warn().Str("custom_id", customID).Msg("unrouted component interaction")
	}
}

// onVoiceStateUpdate watches for the bot losing its connection and for
// the bot's channel emptying out.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	sess, ok := b.sessions.Get(e.GuildID)
	if !ok {
		return
	}

	if e.UserID == s.State.User.ID {
		if e.ChannelID == "" {
			log.Warn().Str("guild_id", e.GuildID).Msg("voice connection dropped")
			go sess.HandleConnectionLoss()
		}
		return
	}

	if sess.LeaveIfAbandoned() {
		log.Info().Str("guild_id", e.GuildID).Msg("voice channel empty, left")
	}
}

// FindUserVoiceState locates the voice channel a user currently sits in.
func (b *Bot) FindUserVoiceState(guildID, userID string) (*command.VoiceState, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return &command.VoiceState{GuildID: guildID, ChannelID: vs.ChannelID, UserID: userID}, nil
		}
	}
	return nil, fmt.Errorf("user %s is not in a voice channel", userID)
}
