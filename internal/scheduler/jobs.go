package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"skaila.com/gamification/internal/entity"
	challengeDto "skaila.com/gamification/internal/modules/challenge/dto"
	xpDto "skaila.com/gamification/internal/modules/xp/dto"
)

type WindowResetter interface {
	ResetWindow(ctx context.Context, window entity.Window) (*xpDto.ResetResponse, error)
}

// AssignFunc hands out challenges to users active since the given instant.
type AssignFunc func(ctx context.Context, since time.Time) (challengeDto.FanOutResult, error)

// WindowJob resets an XP window and, optionally, assigns the challenges of
// the new period to recently active users.
type WindowJob struct {
	Name         string
	Schedule     string
	Window       entity.Window
	Resetter     WindowResetter
	Assign       AssignFunc
	ActiveWindow time.Duration
	Now          func() time.Time
}

func (j *WindowJob) GetName() string     { return j.Name }
func (j *WindowJob) GetSchedule() string { return j.Schedule }

func (j *WindowJob) Execute(ctx context.Context) error {
	var errs []error

	res, err := j.Resetter.ResetWindow(ctx, j.Window)
	if err != nil {
		errs = append(errs, err)
	} else if res.Reset {
		log.Printf("🔄 [%s] %s window reset for %s", j.Name, j.Window, res.PeriodKey)
	}

	if j.Assign != nil {
		now := time.Now
		if j.Now != nil {
			now = j.Now
		}
		result, err := j.Assign(ctx, now().Add(-j.ActiveWindow))
		if err != nil {
			errs = append(errs, err)
		} else {
			log.Printf("🎯 [%s] challenges assigned to %d/%d users (%d failed)", j.Name, result.Assigned, result.Users, result.Failed)
		}
	}

	return errors.Join(errs...)
}

// Schedules holds the cron specs of the standard jobs.
type Schedules struct {
	Daily    string
	Weekly   string
	Monthly  string
	Seasonal string
}

type ChallengeAssigner interface {
	AssignDailyToActiveUsers(ctx context.Context, since time.Time) (challengeDto.FanOutResult, error)
	AssignWeeklyToActiveUsers(ctx context.Context, since time.Time) (challengeDto.FanOutResult, error)
}

// StandardJobs builds the daily, weekly, monthly and seasonal jobs.
func StandardJobs(s Schedules, resetter WindowResetter, challenges ChallengeAssigner, activeWindow time.Duration) []Job {
	return []Job{
		&WindowJob{Name: "daily", Schedule: s.Daily, Window: entity.WindowDaily, Resetter: resetter, Assign: challenges.AssignDailyToActiveUsers, ActiveWindow: activeWindow},
		&WindowJob{Name: "weekly", Schedule: s.Weekly, Window: entity.WindowWeekly, Resetter: resetter, Assign: challenges.AssignWeeklyToActiveUsers, ActiveWindow: activeWindow},
		&WindowJob{Name: "monthly", Schedule: s.Monthly, Window: entity.WindowMonthly, Resetter: resetter},
		&WindowJob{Name: "seasonal", Schedule: s.Seasonal, Window: entity.WindowSeasonal, Resetter: resetter},
	}
}
