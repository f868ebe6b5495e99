package musiccmd

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"quaver/internal/command"
	"quaver/internal/music"
)

func (c *Command) runPlay(sc *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	input := sub.Options[0].StringValue()
	vs, ok := requireVoiceState(sc)
	if !ok {
		return nil
	}
	if err := command.RespondDeferred(sc.Session, sc.Event); err != nil {
		return err
	}

	res, err := session(sc).AddSong(context.Background(), vs.ChannelID, music.ChannelRef(sc.Event.ChannelID), input)
	return command.EditResponse(sc.Session, sc.Event, addedMessage(res, err), nil)
}

func addedMessage(res music.AddResult, err error) string {
	if err != nil {
		if res.Added > 0 {
			return fmt.Sprintf("Queued %d track(s), but playback could not start: %v", res.Added, err)
		}
		return "Could not queue that. Check the link or try a different search."
	}
	msg := fmt.Sprintf("Added to queue: **%s**", res.Title)
	if res.Added > 1 {
		msg = fmt.Sprintf("Added **%d** tracks to the queue, starting with **%s**", res.Added, res.Title)
	}
	if res.Skipped > 0 {
		msg += fmt.Sprintf(" (%d unavailable entries skipped)", res.Skipped)
	}
	return msg
}

func (c *Command) runSkip(sc *command.SlashContext) error {
	title, ok := session(sc).Skip()
	if !ok {
		return command.Respond(sc.Session, sc.Event, "Nothing is playing.")
	}
	return command.Respond(sc.Session, sc.Event, fmt.Sprintf("Skipped **%s**", title))
}

func (c *Command) runStop(sc *command.SlashContext) error {
	if !session(sc).Stop() {
		return command.Respond(sc.Session, sc.Event, "Nothing is playing.")
	}
	return command.Respond(sc.Session, sc.Event, "Playback stopped and queue cleared.")
}

func (c *Command) runShuffle(sc *command.SlashContext) error {
	if !session(sc).Shuffle() {
		return command.Respond(sc.Session, sc.Event, "The queue is empty, nothing to shuffle.")
	}
	return command.Respond(sc.Session, sc.Event, "Queue shuffled.")
}

func (c *Command) runClear(sc *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	var position *int
	for _, opt := range sub.Options {
		if opt.Name == "position" {
			p := int(opt.IntValue())
			position = &p
		}
	}

	var msg string
	switch session(sc).ClearQueue(position) {
	case music.ClearedAll:
		msg = "Queue cleared."
	case music.RemovedOne:
		msg = fmt.Sprintf("Removed entry **%d** from the queue.", *position)
	case music.RemoveOutOfRange:
		msg = fmt.Sprintf("There is no entry **%d** in the queue.", *position)
	default:
		msg = "The queue is already empty."
	}
	return command.Respond(sc.Session, sc.Event, msg)
}

func (c *Command) runLeave(sc *command.SlashContext) error {
	sc.Deps.Sessions.Replace(sc.Event.GuildID)
	return command.Respond(sc.Session, sc.Event, "Disconnected. See you next time.")
}
