package digest

import (
	"testing"

	"tutorbot/internal/config"
)

func TestStartDigestSchedulerDisabled(t *testing.T) {
	// Without a full digest config the scheduler must be a no-op and must not
	// touch the database.
	cfgs := []config.Config{
		{},
		{DigestSchedule: "0 9 * * 1"},
		{DigestSchedule: "0 9 * * 1", SlackBotToken: "xoxb-test"},
		{SlackBotToken: "xoxb-test", DigestChannelID: "C123"},
	}
	for _, cfg := range cfgs {
		StartDigestScheduler(cfg, nil)
	}
}

func TestStartDigestSchedulerRejectsBadSchedule(t *testing.T) {
	cfg := config.Config{
		DigestSchedule:  "not a cron expression",
		SlackBotToken:   "xoxb-test",
		DigestChannelID: "C123",
	}
	// Invalid schedule logs and returns without starting the loop.
	StartDigestScheduler(cfg, nil)
}
