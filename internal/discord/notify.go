package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"quaver/internal/music"
)

// channelNotifier posts playback announcements to text channels. Sends
// are fire and forget and rate limited so a burst of track changes
// cannot flood a channel.
type channelNotifier struct {
	dg      *discordgo.Session
	limiter *rate.Limiter
}

func newChannelNotifier(dg *discordgo.Session) *channelNotifier {
	return &channelNotifier{
		dg:      dg,
		limiter: rate.NewLimiter(rate.Limit(2), 5),
	}
}

func (n *channelNotifier) Send(ch music.ChannelRef, text string) {
	if ch == "" {
		return
	}
	if !n.limiter.Allow() {
		log.Debug().Str("channel_id", string(ch)).Msg("notification dropped by rate limit")
		return
	}
	go func() {
		if _, err := n.dg.ChannelMessageSend(string(ch), text); err != nil {
			log.Warn().Err(err).Str("channel_id", string(ch)).Msg("send notification failed")
		}
	}()
}
