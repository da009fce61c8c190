package announce

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"manifestboard/internal/logging"
	"manifestboard/internal/status"
)

// Ticker receives the scrolling text; an empty string clears it.
type Ticker interface {
	SetTicker(text string)
}

// Speaker renders text as speech. Speak may block until playback ends; the
// announcer always calls it off the caller's goroutine.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Notifier pushes new announcements to remote subscribers.
type Notifier interface {
	NotifyAnnouncement(ctx context.Context, text string) error
}

// Options configures an Announcer.
type Options struct {
	Enabled  bool
	Cooldown time.Duration
	Ticker   Ticker
	Speaker  Speaker
	Notifier Notifier
	Now      func() time.Time
}

// Announcer feeds the ticker on every update and speaks the announcement
// when it changes and then once per cooldown while the condition persists.
// Speech is suppressed while muted and at most one utterance is in flight.
// Update must be called from a single goroutine.
type Announcer struct {
	logger   *slog.Logger
	enabled  bool
	cooldown time.Duration
	ticker   Ticker
	speaker  Speaker
	notifier Notifier
	now      func() time.Time

	lastText   string
	lastKey    string
	lastSpoken time.Time
	speaking   atomic.Bool
	wg         sync.WaitGroup
}

// NewAnnouncer builds an announcer. Nil collaborators are skipped.
func NewAnnouncer(logger *slog.Logger, opts Options) *Announcer {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 20 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Announcer{
		logger:   logging.NewComponentLogger(logger, "announce"),
		enabled:  opts.Enabled,
		cooldown: opts.Cooldown,
		ticker:   opts.Ticker,
		speaker:  opts.Speaker,
		notifier: opts.Notifier,
		now:      opts.Now,
	}
}

// Update composes the announcement for alerts and dispatches it. It never
// waits for speech or notifications.
func (a *Announcer) Update(ctx context.Context, alerts []status.Alert, muted bool) Announcement {
	now := a.now()
	ann := Compose(alerts, now)

	if ann.Text == "" {
		if a.lastText != "" && a.ticker != nil {
			a.ticker.SetTicker("")
		}
		a.lastText = ""
		a.lastKey = ""
		return ann
	}

	changed := ann.Text != a.lastText
	a.lastText = ann.Text
	if changed && a.ticker != nil {
		a.ticker.SetTicker(ann.Text)
	}
	// Pushes follow the set of alerting times, not the per-minute wording.
	newAlert := ann.Key != a.lastKey
	a.lastKey = ann.Key
	if newAlert && a.notifier != nil {
		a.dispatch(func() {
			if err := a.notifier.NotifyAnnouncement(ctx, ann.Text); err != nil {
				a.logger.Debug("announcement notification failed", logging.Error(err))
			}
		})
	}

	if muted || !a.enabled || a.speaker == nil {
		return ann
	}
	if !changed && now.Sub(a.lastSpoken) < a.cooldown {
		return ann
	}
	if !a.speaking.CompareAndSwap(false, true) {
		a.logger.Debug("speech still in progress; skipping announcement",
			logging.String(logging.FieldEventType, "speech_skipped"),
		)
		return ann
	}
	a.lastSpoken = now
	text := ann.Text
	a.dispatch(func() {
		defer a.speaking.Store(false)
		if err := a.speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(a.logger, "speech failed", "speech_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check announcements.speech_command"),
				logging.String(logging.FieldImpact, "the alert is shown on the ticker but not spoken"),
			)
		}
	})
	a.logger.Debug("announcement dispatched",
		logging.String("text", text),
		logging.String(logging.FieldEventType, "announcement_spoken"),
	)
	return ann
}

// Wait blocks until dispatched speech and notifications finish.
func (a *Announcer) Wait() {
	a.wg.Wait()
}

func (a *Announcer) dispatch(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}
