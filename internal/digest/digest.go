// Package digest posts a periodic practice summary to Slack.
package digest

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"

	"tutorbot/internal/config"
	"tutorbot/internal/feedback"
)

// digestWindow is how far back each digest looks.
const digestWindow = 7 * 24 * time.Hour

// StartDigestScheduler starts a cron-based scheduler that periodically builds
// the feedback summary for the trailing week and posts it to the configured
// Slack channel. The schedule is a standard 5-field cron expression.
// Examples: "0 9 * * 1" (Mondays 9am), "0 18 * * *" (daily 6pm).
func StartDigestScheduler(cfg config.Config, db *sql.DB) {
	if !cfg.DigestConfigured() {
		log.Println("Digest disabled (digest_schedule, slack_bot_token and digest_channel_id must all be set)")
		return
	}

	schedule := strings.TrimSpace(cfg.DigestSchedule)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid digest_schedule '%s': %v, digest disabled", schedule, err)
		return
	}

	api := slack.New(cfg.SlackBotToken)
	log.Printf("Digest scheduled (cron: %s) to channel %s", schedule, cfg.DigestChannelID)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next digest at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			if err := SendDigest(cfg, db, api); err != nil {
				log.Printf("Digest error: %v", err)
			}
		}
	}()
}

// SendDigest builds and posts one digest. Split out so it can be triggered
// outside the scheduler loop.
func SendDigest(cfg config.Config, db *sql.DB, api *slack.Client) error {
	since := time.Now().In(cfg.Location).Add(-digestWindow)
	summary, err := feedback.BuildSummary(db, since)
	if err != nil {
		return err
	}

	msg := feedback.FormatDigest(summary)
	_, _, err = api.PostMessage(cfg.DigestChannelID, slack.MsgOptionText(msg, false))
	if err != nil {
		return err
	}
	log.Printf("Digest posted channel=%s mistakes=%d", cfg.DigestChannelID, summary.TotalMistakes)
	return nil
}
