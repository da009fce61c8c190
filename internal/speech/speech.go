// Package speech implements the text-to-speech collaborator used by the
// announcer. Playback runs as an external command; when none is configured
// utterances are only logged.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"manifestboard/internal/config"
	"manifestboard/internal/logging"
)

// CommandSpeaker runs Command with Args followed by the text.
type CommandSpeaker struct {
	Command string
	Args    []string
	Timeout time.Duration
	logger  *slog.Logger
}

// NewCommandSpeaker builds a speaker for an external TTS binary such as
// espeak or say.
func NewCommandSpeaker(command string, args []string, timeout time.Duration, logger *slog.Logger) *CommandSpeaker {
	return &CommandSpeaker{
		Command: strings.TrimSpace(command),
		Args:    append([]string(nil), args...),
		Timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "speech"),
	}
}

// Speak blocks until the command exits, the timeout elapses or ctx ends.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	if s.Command == "" {
		return errors.New("speech command not configured")
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	args := append(append([]string(nil), s.Args...), text)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", s.Command, err, detail)
		}
		return fmt.Errorf("%s: %w", s.Command, err)
	}
	s.logger.Debug("speech finished",
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "speech_finished"),
	)
	return nil
}

// LogSpeaker records utterances in the log instead of playing them.
type LogSpeaker struct {
	logger *slog.Logger
}

func NewLogSpeaker(logger *slog.Logger) *LogSpeaker {
	return &LogSpeaker{logger: logging.NewComponentLogger(logger, "speech")}
}

func (s *LogSpeaker) Speak(_ context.Context, text string) error {
	s.logger.Info("announcement",
		logging.String("text", text),
		logging.String(logging.FieldEventType, "announcement_logged"),
	)
	return nil
}

// Speaker is the common behaviour of both implementations.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// FromConfig picks a CommandSpeaker when a command is configured and a
// LogSpeaker otherwise.
func FromConfig(cfg *config.Config, logger *slog.Logger) Speaker {
	if cfg == nil || cfg.Announcements.SpeechCommand == "" {
		return NewLogSpeaker(logger)
	}
	return NewCommandSpeaker(cfg.Announcements.SpeechCommand, cfg.Announcements.SpeechArgs, cfg.SpeechTimeout(), logger)
}
