package corecmd

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"quaver/internal/command"
	"quaver/internal/version"
)

// AboutCommand reports what the bot is and which build is running.
type AboutCommand struct{}

func (c *AboutCommand) Name() string        { return "about" }
func (c *AboutCommand) Description() string { return "About this bot" }

func (c *AboutCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *AboutCommand) Run(ctx interface{}) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return fmt.Errorf("about: unexpected context %T", ctx)
	}
	return command.RespondEmbed(sc.Session, sc.Event, &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s v%s", version.AppName, version.Version),
		Description: "A music bot for your voice channels. Queue tracks with `/music play`, " +
			"search with `/music search`, and see what is coming with `/music queue`.",
		Color: command.EmbedColor,
	})
}
