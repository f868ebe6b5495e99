package musiccmd

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"quaver/internal/command"
	"quaver/internal/music"
)

// Command is the /music slash command with all playback subcommands.
type Command struct {
	mu      sync.Mutex
	pending map[string]*music.Selection
}

func New() *Command {
	return &Command{pending: make(map[string]*music.Selection)}
}

func (c *Command) Name() string        { return "music" }
func (c *Command) Description() string { return "Play music in your voice channel" }

func (c *Command) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Queue a track by link, playlist link or search phrase",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "input",
						Description: "Link or search phrase",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "search",
				Description: "Search and pick one of the top results",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "query",
						Description: "What to search for",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "queue",
				Description: "Show the current song and the queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skip",
				Description: "Skip the current song",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop playback and clear the queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "shuffle",
				Description: "Shuffle the queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "clear",
				Description: "Clear the queue or remove one entry",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "position",
						Description: "Queue position to remove (leave empty to clear everything)",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "history",
				Description: "Show or erase recently played tracks",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "clear",
						Description: "Erase the history instead of showing it",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "leave",
				Description: "Disconnect from the voice channel",
			},
		},
	}
}

func (c *Command) Run(ctx interface{}) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return fmt.Errorf("music: unexpected context %T", ctx)
	}
	data := sc.Event.ApplicationCommandData()
	if len(data.Options) == 0 {
		return command.RespondEphemeral(sc.Session, sc.Event, "Pick a subcommand.")
	}
	sub := data.Options[0]

	switch sub.Name {
	case "play":
		return c.runPlay(sc, sub)
	case "search":
		return c.runSearch(sc, sub)
	case "queue":
		return c.runQueue(sc)
	case "skip":
		return c.runSkip(sc)
	case "stop":
		return c.runStop(sc)
	case "shuffle":
		return c.runShuffle(sc)
	case "clear":
		return c.runClear(sc, sub)
	case "history":
		return c.runHistory(sc, sub)
	case "leave":
		return c.runLeave(sc)
	}
	return command.RespondEphemeral(sc.Session, sc.Event, "Unknown subcommand.")
}

// session returns the playback session for the interaction's guild.
func session(sc *command.SlashContext) *music.Session {
	return sc.Deps.Sessions.GetOrCreate(sc.Event.GuildID)
}

// requireVoiceState resolves the invoking user's voice channel or answers
// the interaction with an ephemeral hint.
func requireVoiceState(sc *command.SlashContext) (*command.VoiceState, bool) {
	userID := ""
	if sc.Event.Member != nil && sc.Event.Member.User != nil {
		userID = sc.Event.Member.User.ID
	}
	vs, err := sc.Deps.Voice.FindUserVoiceState(sc.Event.GuildID, userID)
	if err != nil || vs == nil {
		_ = command.RespondEphemeral(sc.Session, sc.Event, "Join a voice channel first.")
		return nil, false
	}
	return vs, true
}
