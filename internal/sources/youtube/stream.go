package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

const (
	channels   = 2
	sampleRate = 48000
)

// OpenStream opens a PCM stream (s16le, 48 kHz, stereo) for a video URL: the
// best audio format's stream URL is fed through ffmpeg with reconnect
// enabled.
func (r *Resolver) OpenStream(ctx context.Context, videoURL string) (io.ReadCloser, error) {
	id, err := extractVideoID(videoURL)
	if err != nil {
		return nil, err
	}

	video, err := r.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", id, err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, errors.New("no audio formats found for video")
	}

	link, err := r.client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return nil, fmt.Errorf("get stream URL: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", link,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	r.log.Debug().Str("video", id).Msg("pcm stream opened")
	return &pcmStream{out: stdout, cmd: cmd}, nil
}

// pcmStream is ffmpeg's stdout; Close kills the decoder and reaps it.
type pcmStream struct {
	out io.ReadCloser
	cmd *exec.Cmd
}

func (p *pcmStream) Read(b []byte) (int, error) {
	return p.out.Read(b)
}

func (p *pcmStream) Close() error {
	p.out.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd.Wait()
	return nil
}
