package musiccmd

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"quaver/internal/command"
	"quaver/internal/music"
)

func (c *Command) runQueue(sc *command.SlashContext) error {
	sess := session(sc)

	embed := &discordgo.MessageEmbed{
		Title: "Queue",
		Color: command.EmbedColor,
	}

	current, remaining, playing := sess.NowPlaying()
	if playing {
		embed.Description = fmt.Sprintf("Now playing: **%s** (%s left)",
			current.Title, music.FormatDuration(remaining))
	} else {
		embed.Description = "Nothing is playing right now."
	}

	preview := sess.QueuePreview()
	if len(preview.Entries) == 0 {
		embed.Description += "\n\nThe queue is empty."
		return command.RespondEmbed(sc.Session, sc.Event, embed)
	}

	var b strings.Builder
	for _, entry := range preview.Entries {
		fmt.Fprintf(&b, "**%d.** %s\n", entry.Position, entry.Title)
	}
	if preview.Omitted > 0 {
		fmt.Fprintf(&b, "... and %d more song(s)\n", preview.Omitted)
	}
	embed.Fields = []*discordgo.MessageEmbedField{{
		Name:  "Up next",
		Value: b.String(),
	}}
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Total time left: %s", music.FormatDuration(preview.Remaining)),
	}
	return command.RespondEmbed(sc.Session, sc.Event, embed)
}

func (c *Command) runHistory(sc *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	for _, opt := range sub.Options {
		if opt.Name == "clear" && opt.BoolValue() {
			sc.Deps.History.ClearHistory(sc.Event.GuildID)
			return command.Respond(sc.Session, sc.Event, "Play history cleared.")
		}
	}

	records := sc.Deps.History.History(sc.Event.GuildID)
	if len(records) == 0 {
		return command.Respond(sc.Session, sc.Event, "Nothing has been played here yet.")
	}

	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "**%d.** [%s](%s) · %s\n",
			i+1, rec.Title, rec.URL, music.FormatDuration(rec.Duration))
	}
	return command.RespondEmbed(sc.Session, sc.Event, &discordgo.MessageEmbed{
		Title:       "Recently played",
		Description: b.String(),
		Color:       command.EmbedColor,
	})
}
