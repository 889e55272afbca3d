package services

import (
	"time"

	"github.com/robfig/cron/v3"
)

// minInterval is the finest period a seconds-resolution cron can honour.
const minInterval = time.Second

func clampInterval(d time.Duration) time.Duration {
	if d < minInterval {
		return minInterval
	}
	return d
}

// scheduleEvery registers job on c with a constant delay between runs.
func scheduleEvery(c *cron.Cron, interval time.Duration, job func()) cron.EntryID {
	return c.Schedule(cron.Every(clampInterval(interval)), cron.FuncJob(job))
}
