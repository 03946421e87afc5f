// Package broadcast pushes presence snapshots to Discord.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"streampresence/internal/discord"
	"streampresence/internal/metrics"
	"streampresence/internal/presence"
	"streampresence/internal/titleparse"
	"streampresence/pkg/media"
)

const (
	maxFieldLength  = 100
	posterURLPrefix = "https://image.tmdb.org/t/p/w200"
)

// Client is the presence backend connection.
type Client interface {
	Connect(ctx context.Context, clientID string) error
	SetActivity(ctx context.Context, act *discord.Activity) error
	ClearActivity(ctx context.Context) error
	Close() error
	Connected() bool
	ClientID() string
}

// IdentityFunc returns the application id used for a service. ServiceNone
// asks for the default identity.
type IdentityFunc func(media.Service) string

// Driver performs tiered pushes and owns reconnection. It is used from the
// poll loop and the shutdown hook; calls are serialized.
type Driver struct {
	client   Client
	identity IdentityFunc
	policy   ReconnectPolicy
	log      logrus.FieldLogger

	tierDelay time.Duration
	cooldown  time.Duration
	clearWait time.Duration

	mu       sync.Mutex
	selected media.Service
	degraded bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithTierDelay sets the pause between push tiers.
func WithTierDelay(d time.Duration) Option {
	return func(dr *Driver) { dr.tierDelay = d }
}

// WithCooldown sets the pause between closing and reopening a connection.
func WithCooldown(d time.Duration) Option {
	return func(dr *Driver) { dr.cooldown = d }
}

// WithPolicy replaces the startup reconnect policy.
func WithPolicy(p ReconnectPolicy) Option {
	return func(dr *Driver) { dr.policy = p }
}

// WithClearWait sets the pause between clearing and closing on shutdown.
func WithClearWait(d time.Duration) Option {
	return func(dr *Driver) { dr.clearWait = d }
}

func NewDriver(client Client, identity IdentityFunc, log logrus.FieldLogger, opts ...Option) *Driver {
	d := &Driver{
		client:    client,
		identity:  identity,
		policy:    DefaultReconnectPolicy(),
		log:       log,
		tierDelay: time.Second,
		cooldown:  3 * time.Second,
		clearWait: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ConnectWithRetry opens the default identity using the reconnect policy.
// On failure the driver enters degraded mode and Push becomes a no-op until
// a later Reconnect succeeds.
func (d *Driver) ConnectWithRetry(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.identity(d.selected)
	attempt := 0
	err := d.policy.Retry(ctx, func() error {
		attempt++
		metrics.Reconnects.Inc()
		return d.client.Connect(ctx, id)
	}, func(err error, wait time.Duration) {
		d.log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "retry_in": wait}).
			Warn("Failed to connect to Discord")
	})
	if err != nil {
		d.degraded = true
		d.log.WithError(err).Error("Giving up on Discord, continuing with detection only")
		return fmt.Errorf("connect to discord: %w", err)
	}
	d.degraded = false
	d.log.Info("Connected to Discord")
	return nil
}

// Degraded reports whether broadcasting is disabled after failed connects.
func (d *Driver) Degraded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.degraded
}

// Reconnect closes the connection, waits for the cooldown and reopens it
// under the identity of the currently selected service.
func (d *Driver) Reconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reconnectLocked(ctx)
}

func (d *Driver) reconnectLocked(ctx context.Context) error {
	_ = d.client.Close()
	if err := sleep(ctx, d.cooldown); err != nil {
		return err
	}
	metrics.Reconnects.Inc()
	d.log.Info("Reconnecting to Discord")
	if err := d.client.Connect(ctx, d.identity(d.selected)); err != nil {
		d.log.WithError(err).Error("Failed to reconnect to Discord")
		return fmt.Errorf("reconnect: %w", err)
	}
	d.degraded = false
	d.log.Info("Reconnected to Discord")
	return nil
}

// ensureIdentity makes sure the connection is open for svc. A change of
// service always clears, closes and reopens the connection under the
// identity bound to svc, even when both services share an application id.
func (d *Driver) ensureIdentity(ctx context.Context, svc media.Service) error {
	want := d.identity(svc)
	switched := d.selected != media.ServiceNone && d.selected != svc
	if d.client.Connected() && !switched && d.client.ClientID() == want {
		d.selected = svc
		return nil
	}
	if d.client.Connected() {
		_ = d.client.ClearActivity(ctx)
		_ = d.client.Close()
		d.log.WithFields(logrus.Fields{"from": d.selected, "to": svc}).Info("Service changed, reopening Discord connection")
	}
	d.selected = svc
	if err := d.client.Connect(ctx, want); err != nil {
		return fmt.Errorf("connect as %s: %w", svc, err)
	}
	return nil
}

// Push sends snap in three tiers and reports whether the basic tier
// succeeded. Later tiers never undo an earlier success.
func (d *Driver) Push(ctx context.Context, snap presence.Snapshot) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	logger := d.log.WithFields(logrus.Fields{
		"service": snap.Service,
		"title":   titleparse.SanitizeForLog(snap.Title),
	})

	if d.degraded {
		logger.Debug("Discord unavailable, skipping presence update")
		return false
	}
	if err := d.ensureIdentity(ctx, snap.Service); err != nil {
		logger.WithError(err).Warn("Failed to connect to Discord")
		metrics.Pushes.WithLabelValues("basic", "error").Inc()
		return false
	}

	basic := BasicActivity(snap)
	if err := d.client.SetActivity(ctx, &basic); err != nil {
		logger.WithError(err).Warn("Basic presence update failed")
		if !errors.Is(err, discord.ErrPipeTimeout) {
			metrics.Pushes.WithLabelValues("basic", "error").Inc()
			return false
		}
		logger.Warn("Discord pipe timeout detected, attempting to reconnect")
		if rerr := d.reconnectLocked(ctx); rerr != nil {
			metrics.Pushes.WithLabelValues("basic", "error").Inc()
			return false
		}
		if err := d.client.SetActivity(ctx, &basic); err != nil {
			logger.WithError(err).Error("Update still failed after reconnection")
			metrics.Pushes.WithLabelValues("basic", "error").Inc()
			return false
		}
	}
	metrics.Pushes.WithLabelValues("basic", "ok").Inc()
	logger.Info("Basic presence update successful")

	current := basic
	if snap.Artwork != "" {
		if err := sleep(ctx, d.tierDelay); err != nil {
			return true
		}
		withArt := WithArtwork(basic, snap.Artwork)
		if err := d.client.SetActivity(ctx, &withArt); err != nil {
			logger.WithError(err).Warn("Failed to set thumbnail image")
			metrics.Pushes.WithLabelValues("artwork", "error").Inc()
		} else {
			metrics.Pushes.WithLabelValues("artwork", "ok").Inc()
			logger.Debug("Presence updated with thumbnail image")
		}
		current = withArt
	}

	if err := sleep(ctx, d.tierDelay); err != nil {
		return true
	}
	full := WithButton(current, snap.Service)
	if err := d.client.SetActivity(ctx, &full); err != nil {
		logger.WithError(err).Warn("Failed to add buttons to presence")
		metrics.Pushes.WithLabelValues("buttons", "error").Inc()
	} else {
		metrics.Pushes.WithLabelValues("buttons", "ok").Inc()
		logger.Debug("Full presence updated with buttons")
	}
	return true
}

// Clear removes the presence if a connection is open.
func (d *Driver) Clear(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.client.Connected() {
		return nil
	}
	if err := d.client.ClearActivity(ctx); err != nil {
		return fmt.Errorf("clear presence: %w", err)
	}
	d.log.Info("Discord presence cleared")
	return nil
}

// Shutdown clears the presence, waits briefly and closes the connection.
func (d *Driver) Shutdown(ctx context.Context) {
	if err := d.Clear(ctx); err != nil {
		d.log.WithError(err).Warn("Failed to clear presence on shutdown")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clearWait > 0 {
		time.Sleep(d.clearWait)
	}
	if err := d.client.Close(); err != nil {
		d.log.WithError(err).Debug("Error closing Discord connection")
	}
}

// BasicActivity builds the first tier: title, status line, service image
// and start time.
func BasicActivity(snap presence.Snapshot) discord.Activity {
	return discord.Activity{
		Type:    discord.ActivityWatching,
		Details: truncate(snap.Title),
		State:   truncate(media.StatusLine(snap.Service, snap.Type, snap.Episode)),
		Timestamps: &discord.Timestamps{
			Start: snap.StartedAt.UnixMilli(),
		},
		Assets: &discord.Assets{
			LargeImage: snap.Service.ImageKey(),
		},
	}
}

// WithArtwork adds the poster as the small image.
func WithArtwork(act discord.Activity, artwork string) discord.Activity {
	out := act.Clone()
	if out.Assets == nil {
		out.Assets = &discord.Assets{}
	}
	out.Assets.SmallImage = ArtworkURL(artwork)
	out.Assets.SmallText = out.Details
	return out
}

// WithButton adds the large image text and a link to the service.
func WithButton(act discord.Activity, svc media.Service) discord.Activity {
	out := act.Clone()
	if out.Assets == nil {
		out.Assets = &discord.Assets{}
	}
	out.Assets.LargeText = "Watching on " + string(svc)
	out.Buttons = []discord.Button{{Label: "Watch on " + string(svc), URL: svc.SiteURL()}}
	return out
}

// ArtworkURL turns a TMDB poster path into a w200 image URL.
func ArtworkURL(artwork string) string {
	if strings.HasPrefix(artwork, "http") {
		return artwork
	}
	return posterURLPrefix + artwork
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxFieldLength {
		return s
	}
	r := []rune(s)
	return string(r[:maxFieldLength-3]) + "..."
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
