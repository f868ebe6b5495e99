package discord

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"layeh.com/gopus"

	"quaver/internal/music"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms of 48kHz audio
)

// voiceProvider opens guild voice connections through discordgo.
type voiceProvider struct {
	dg *discordgo.Session
}

func (p *voiceProvider) Open(ctx context.Context, guildID, channelID string) (music.Connection, error) {
	vc, err := p.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel %s: %w", channelID, err)
	}
	return &voiceConnection{dg: p.dg, guildID: guildID, channelID: channelID, vc: vc}, nil
}

type voiceConnection struct {
	dg        *discordgo.Session
	guildID   string
	channelID string
	vc        *discordgo.VoiceConnection
}

func (c *voiceConnection) Destroy() error {
	return c.vc.Disconnect()
}

func (c *voiceConnection) Alive() bool {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

// ListenerCount counts humans in the bot's voice channel, excluding the
// bot itself.
func (c *voiceConnection) ListenerCount() int {
	guild, err := c.dg.State.Guild(c.guildID)
	if err != nil {
		return 0
	}
	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == c.channelID && vs.UserID != c.dg.State.User.ID {
			count++
		}
	}
	return count
}

// sinkFactory binds an opus sink to an open voice connection.
type sinkFactory struct{}

func (sinkFactory) Bind(conn music.Connection) (music.Sink, error) {
	c, ok := conn.(*voiceConnection)
	if !ok {
		return nil, errors.New("connection was not opened by this provider")
	}
	return &opusSink{vc: c.vc}, nil
}

// opusSink encodes 48kHz stereo PCM to opus frames and pushes them to a
// voice connection. onIdle fires only when a stream ends on its own;
// Stop silences the sink without firing it.
type opusSink struct {
	vc *discordgo.VoiceConnection

	mu   sync.Mutex
	stop chan struct{}
}

func (s *opusSink) Play(stream io.ReadCloser, onIdle func()) error {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
	}
	stopCh := make(chan struct{})
	s.stop = stopCh
	s.mu.Unlock()

	go s.run(stream, stopCh, onIdle)
	return nil
}

func (s *opusSink) Stop() {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
}

func (s *opusSink) run(stream io.ReadCloser, stopCh chan struct{}, onIdle func()) {
	defer stream.Close()

	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		log.Error().Err(err).Msg("opus encoder init failed")
		onIdle()
		return
	}

	if err := s.vc.Speaking(true); err != nil {
		log.Warn().Err(err).Msg("set speaking failed")
	}
	defer func() {
		if err := s.vc.Speaking(false); err != nil {
			log.Warn().Err(err).Msg("unset speaking failed")
		}
	}()

	pcmBuf := make([]byte, frameSize*channels*2)
	frame := make([]int16, frameSize*channels)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if _, err := io.ReadFull(stream, pcmBuf); err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				log.Warn().Err(err).Msg("pcm stream read error")
			}
			onIdle()
			return
		}
		for i := range frame {
			frame[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2:]))
		}

		opusFrame, err := enc.Encode(frame, frameSize, len(pcmBuf))
		if err != nil {
			log.Warn().Err(err).Msg("opus encode error")
			onIdle()
			return
		}

		select {
		case <-stopCh:
			return
		case s.vc.OpusSend <- opusFrame:
		}
	}
}
