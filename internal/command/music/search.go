package musiccmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"quaver/internal/command"
	"quaver/internal/music"
)

const selectPrefix = "music:search:"

// maxOptionText is Discord's limit for select option labels and
// descriptions.
const maxOptionText = 100

func (c *Command) runSearch(sc *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	query := sub.Options[0].StringValue()
	if _, ok := requireVoiceState(sc); !ok {
		return nil
	}
	if err := command.RespondDeferred(sc.Session, sc.Event); err != nil {
		return err
	}

	sess := session(sc)
	candidates, err := sc.Deps.Resolver.Search(context.Background(), query, sess.Config().SearchLimit)
	if err != nil || len(candidates) == 0 {
		return command.EditResponse(sc.Session, sc.Event,
			fmt.Sprintf("No results for **%s**.", query), nil)
	}

	flow := music.NewSelection(interactionUser(sc.Event), candidates)
	c.track(flow)

	menu := discordgo.SelectMenu{
		CustomID:    selectPrefix + flow.ID,
		Placeholder: "Pick a track",
		Options:     menuOptions(candidates),
	}
	err = command.EditResponse(sc.Session, sc.Event,
		fmt.Sprintf("Results for **%s**:", query),
		[]discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{menu},
		}})
	if err != nil {
		c.untrack(flow.ID)
		return err
	}

	go c.awaitSelection(sc, flow)
	return nil
}

func menuOptions(candidates []music.Candidate) []discordgo.SelectMenuOption {
	opts := make([]discordgo.SelectMenuOption, 0, len(candidates)+1)
	for _, cand := range candidates {
		desc := fmt.Sprintf("%s · %s", cand.Author, music.FormatDuration(cand.Duration))
		if cand.Views > 0 {
			desc += fmt.Sprintf(" · %d views", cand.Views)
		}
		opts = append(opts, discordgo.SelectMenuOption{
			Label:       truncate(cand.Title, maxOptionText),
			Description: truncate(desc, maxOptionText),
			Value:       cand.URL,
		})
	}
	opts = append(opts, discordgo.SelectMenuOption{
		Label:       "None of these",
		Description: "Dismiss the search",
		Value:       music.NoneValue,
	})
	return opts
}

func (c *Command) awaitSelection(sc *command.SlashContext, flow *music.Selection) {
	timeout := session(sc).Config().SelectionTimeout
	value, outcome := flow.Await(context.Background(), timeout)
	c.untrack(flow.ID)

	var msg string
	switch outcome {
	case music.SelectionChosen:
		msg = c.queueChoice(sc, flow, value)
	case music.SelectionNone:
		msg = "Alright, nothing queued."
	case music.SelectionTimeout:
		msg = "No pick within five minutes, search dismissed."
	default:
		msg = "Search canceled."
	}

	if err := command.EditResponse(sc.Session, sc.Event, msg, []discordgo.MessageComponent{}); err != nil {
		log.Warn().Err(err).Str("guild_id", sc.Event.GuildID).Msg("edit search reply failed")
	}
}

// queueChoice queues the picked track. The session and the requester's
// voice state are looked up fresh here: during the wait the requester may
// have moved and the original session may have been torn down and
// replaced.
func (c *Command) queueChoice(sc *command.SlashContext, flow *music.Selection, value string) string {
	vs, err := sc.Deps.Voice.FindUserVoiceState(sc.Event.GuildID, flow.RequesterID)
	if err != nil || vs == nil {
		return "You left the voice channel, so nothing was queued."
	}
	res, err := session(sc).AddSong(context.Background(), vs.ChannelID, music.ChannelRef(sc.Event.ChannelID), value)
	return addedMessage(res, err)
}

// Component resolves a pick from the search select menu. Picks by anyone
// but the requester are acknowledged and ignored.
func (c *Command) Component(ctx *command.ComponentContext, customID string) error {
	if !strings.HasPrefix(customID, selectPrefix) {
		return nil
	}
	flowID := strings.TrimPrefix(customID, selectPrefix)

	c.mu.Lock()
	flow, ok := c.pending[flowID]
	c.mu.Unlock()

	if err := command.AckComponent(ctx.Session, ctx.Event); err != nil {
		return err
	}
	if !ok {
		return nil
	}

	values := ctx.Event.MessageComponentData().Values
	if len(values) == 0 {
		return nil
	}
	flow.Offer(interactionUser(ctx.Event), values[0])
	return nil
}

func (c *Command) track(flow *music.Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.pending = make(map[string]*music.Selection)
	}
	c.pending[flow.ID] = flow
}

func (c *Command) untrack(flowID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, flowID)
}

func interactionUser(e *discordgo.InteractionCreate) string {
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User.ID
	}
	if e.User != nil {
		return e.User.ID
	}
	return ""
}

// truncate shortens s to max characters, ending with an ellipsis. Discord
// limits are in characters, not bytes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
