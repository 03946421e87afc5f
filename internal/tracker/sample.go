package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"streampresence/internal/presence"
	"streampresence/pkg/media"
)

// SampleSnapshot is the fixed show broadcast by test mode.
func SampleSnapshot() presence.Snapshot {
	return presence.SnapshotOf(media.Record{
		Watching: true,
		Service:  media.Netflix,
		Title:    "Stranger Things",
		Type:     media.TypeShow,
		Episode:  &media.Episode{Season: 1, Number: 1, Title: "Chapter One"},
	}, time.Now())
}

// RunSample connects, broadcasts the sample show and holds it until ctx is
// cancelled.
func RunSample(ctx context.Context, driver Broadcaster, artwork ArtworkFinder, log logrus.FieldLogger) error {
	if err := driver.ConnectWithRetry(ctx); err != nil {
		return err
	}

	snap := SampleSnapshot()
	if artwork != nil {
		poster, err := artwork.SearchImage(ctx, snap.Title, snap.Type, snap.Episode.Season)
		if err != nil {
			log.WithError(err).Warn("Artwork lookup failed")
		}
		snap.Artwork = poster
	}

	if !driver.Push(ctx, snap) {
		shutdown(driver)
		return fmt.Errorf("failed to push sample presence")
	}
	log.WithFields(logrus.Fields{"service": snap.Service, "title": snap.Title}).Info("Sample presence active, interrupt to stop")

	<-ctx.Done()
	shutdown(driver)
	return nil
}

func shutdown(driver Broadcaster) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	driver.Shutdown(ctx)
}
