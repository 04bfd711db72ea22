package watch

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "rehearsalcal/internal/log"
)

// Schedule runs job on the standard cron spec until ctx is canceled.
// Overlapping runs are skipped.
func Schedule(ctx context.Context, spec string, job func(ctx context.Context) error) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			appLog.Error("scheduled regeneration failed", err, "spec", spec)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh spec %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("refresh scheduled", "spec", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh schedule stopped", "spec", spec)
	}()
	return nil
}
