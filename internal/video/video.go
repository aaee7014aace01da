package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/ivlev/slideforge/internal/config"
)

var (
	ErrNotStarted = errors.New("video sink not started")
	ErrBadFrame   = errors.New("frame size does not match stream")
)

// Artifact is the finalized output of a sink.
type Artifact struct {
	Path   string
	Frames int
	Bytes  int64
}

// Sink consumes raw frames at a declared size and rate and produces an
// encoded artifact on Finalize. Abort drops everything written so far.
type Sink interface {
	Begin(ctx context.Context, params config.StreamParams) error
	WriteFrame(frame *image.RGBA) error
	Finalize(ctx context.Context) (Artifact, error)
	Abort()
}

// FFmpegSink streams rawvideo RGBA into an ffmpeg process over stdin.
type FFmpegSink struct {
	// Binary defaults to "ffmpeg".
	Binary string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	log    logBuffer
	params config.StreamParams
	frames int
	scrap  *image.RGBA
}

func NewFFmpegSink() *FFmpegSink {
	return &FFmpegSink{Binary: "ffmpeg"}
}

func (s *FFmpegSink) Begin(ctx context.Context, params config.StreamParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return errors.New("video sink already started")
	}
	if params.Width <= 0 || params.Height <= 0 || params.FPS <= 0 {
		return fmt.Errorf("invalid stream %dx%d@%d", params.Width, params.Height, params.FPS)
	}
	if params.Output == "" {
		return errors.New("stream output path is empty")
	}

	bin := s.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, buildFFmpegArgs(params)...)
	s.log.Reset()
	cmd.Stdout = &s.log
	cmd.Stderr = &s.log

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	s.cmd, s.stdin, s.params, s.frames = cmd, stdin, params, 0
	return nil
}

func buildFFmpegArgs(params config.StreamParams) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
		"-r", fmt.Sprintf("%d", params.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", params.Encoder,
	}

	// Quality depends on the encoder
	switch params.Encoder {
	case "h264_videotoolbox":
		bitrate := params.Quality * 100
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", params.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", params.Quality), "-preset", "medium")
	}

	args = append(args, "-movflags", "+faststart", params.Output)
	return args
}

func (s *FFmpegSink) WriteFrame(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return ErrNotStarted
	}
	b := frame.Bounds()
	if b.Dx() != s.params.Width || b.Dy() != s.params.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrBadFrame, b.Dx(), b.Dy(), s.params.Width, s.params.Height)
	}
	if err := s.writeRawRGBA(frame); err != nil {
		return fmt.Errorf("write raw error: %w (ffmpeg: %s)", err, s.log.Tail())
	}
	s.frames++
	return nil
}

func (s *FFmpegSink) writeRawRGBA(img *image.RGBA) error {
	bounds := img.Bounds()
	rgba := img
	// Sub-images carry a wider stride; repack them into a tight buffer.
	if rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		if s.scrap == nil || s.scrap.Rect.Size() != bounds.Size() {
			s.scrap = image.NewRGBA(image.Rectangle{Max: bounds.Size()})
		}
		draw.Draw(s.scrap, s.scrap.Rect, img, bounds.Min, draw.Src)
		rgba = s.scrap
	}
	_, err := s.stdin.Write(rgba.Pix)
	return err
}

// Finalize closes the frame stream and waits for the encoder to flush.
func (s *FFmpegSink) Finalize(ctx context.Context) (Artifact, error) {
	s.mu.Lock()
	cmd, stdin, params, frames := s.cmd, s.stdin, s.params, s.frames
	s.cmd, s.stdin = nil, nil
	s.mu.Unlock()

	if cmd == nil {
		return Artifact{}, ErrNotStarted
	}
	stdin.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return Artifact{}, fmt.Errorf("ffmpeg wait error: %w\nLog: %s", err, s.log.Tail())
		}
	case <-ctx.Done():
		cmd.Process.Kill()
		<-done
		os.Remove(params.Output)
		return Artifact{}, ctx.Err()
	}

	art := Artifact{Path: params.Output, Frames: frames}
	if fi, err := os.Stat(params.Output); err == nil {
		art.Bytes = fi.Size()
	}
	return art, nil
}

// Abort kills the encoder and removes the partial output.
func (s *FFmpegSink) Abort() {
	s.mu.Lock()
	cmd, stdin, out := s.cmd, s.stdin, s.params.Output
	s.cmd, s.stdin = nil, nil
	s.mu.Unlock()

	if cmd == nil {
		return
	}
	stdin.Close()
	cmd.Process.Kill()
	cmd.Wait()
	os.Remove(out)
}

// logBuffer collects encoder output. os/exec fills it from its own
// goroutine while the sink may read it on a failed write.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *logBuffer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Reset()
}

// Tail returns the last couple of kilobytes, trimmed.
func (l *logBuffer) Tail() string {
	const max = 2048
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.buf.Bytes()
	if len(b) > max {
		b = b[len(b)-max:]
	}
	return string(bytes.TrimSpace(b))
}
