package command

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Middleware wraps a command with additional behavior around Run.
type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	run func(ctx interface{}) error
}

func (w *wrappedCommand) Run(ctx interface{}) error { return w.run(ctx) }

// SlashDefinition delegates to the wrapped command so middleware does
// not hide its registration surface.
func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if p, ok := w.Command.(SlashProvider); ok {
		return p.SlashDefinition()
	}
	return nil
}

// Component delegates component interactions to the wrapped command.
func (w *wrappedCommand) Component(ctx *ComponentContext, customID string) error {
	if h, ok := w.Command.(ComponentHandler); ok {
		return h.Component(ctx, customID)
	}
	return nil
}

// WithGuildOnly rejects slash invocations outside a guild with an
// ephemeral notice.
func WithGuildOnly() Middleware {
	return func(next Command) Command {
		return &wrappedCommand{
			Command: next,
			run: func(ctx interface{}) error {
				if sc, ok := ctx.(*SlashContext); ok && sc.Event.GuildID == "" {
					return RespondEphemeral(sc.Session, sc.Event, "This command only works in a server.")
				}
				return next.Run(ctx)
			},
		}
	}
}

// WithCommandLogger logs every slash invocation with its guild, user
// and duration.
func WithCommandLogger() Middleware {
	return func(next Command) Command {
		return &wrappedCommand{
			Command: next,
			run: func(ctx interface{}) error {
				sc, ok := ctx.(*SlashContext)
				if !ok {
					return next.Run(ctx)
				}
				started := time.Now()
				err := next.Run(ctx)
				ev := log.Info()
				if err != nil {
					ev = log.Error().Err(err)
				}
				ev.Str("command", next.Name()).
					Str("guild_id", sc.Event.GuildID).
					Str("user_id", interactionUserID(sc.Event)).
					Dur("took", time.Since(started)).
					Msg("command handled")
				return err
			},
		}
	}
}

func interactionUserID(e *discordgo.InteractionCreate) string {
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User.ID
	}
	if e.User != nil {
		return e.User.ID
	}
	return ""
}
