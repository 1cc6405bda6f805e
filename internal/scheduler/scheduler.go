package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kkkkikiki/quizgift/internal/metrics"
	"github.com/kkkkikiki/quizgift/internal/service"
	"github.com/kkkkikiki/quizgift/internal/settings"
)

const (
	campaignSyncInterval = time.Minute
	abandonSweepInterval = 10 * time.Minute
	giftAssignInterval   = time.Minute
	jobTimeout           = 30 * time.Second
)

// Jobs holds the periodic maintenance tasks
type Jobs struct {
	Campaigns    *service.CampaignService
	Participants *service.ParticipantService
	Gifts        *service.GiftService
	Settings     *settings.Store
	AbandonAfter time.Duration
	Now          func() time.Time
}

// SyncCampaigns marks campaigns active or inactive according to their dates
func (j *Jobs) SyncCampaigns(ctx context.Context) error {
	n, err := j.Campaigns.SyncActive(ctx, j.Now())
	if err != nil {
		return fmt.Errorf("sync campaigns: %w", err)
	}
	if n > 0 {
		slog.Info("campaign activity updated", "campaigns", n)
	}
	return nil
}

// SweepAbandoned marks idle participants as abandoned
func (j *Jobs) SweepAbandoned(ctx context.Context) error {
	n, err := j.Participants.SweepAbandoned(ctx, j.Now(), j.AbandonAfter)
	if err != nil {
		return fmt.Errorf("sweep abandoned participants: %w", err)
	}
	if n > 0 {
		slog.Info("participants marked abandoned", "participants", n, "after", j.AbandonAfter)
	}
	return nil
}

// AssignGifts hands gifts to completed participants who reached the pass
// score. It does nothing while auto_assign_gift is off.
func (j *Jobs) AssignGifts(ctx context.Context) error {
	enabled, err := j.Settings.Bool(ctx, settings.AutoAssignGift)
	if err != nil {
		return fmt.Errorf("assign gifts: %w", err)
	}
	if !enabled {
		return nil
	}
	passScore, err := j.Settings.Int(ctx, settings.PassScore)
	if err != nil {
		return fmt.Errorf("assign gifts: %w", err)
	}

	n, err := j.Gifts.AutoAssign(ctx, passScore)
	if n > 0 {
		slog.Info("gifts assigned", "participants", n, "pass_score", passScore)
	}
	if err != nil {
		return fmt.Errorf("assign gifts: %w", err)
	}
	return nil
}

type jobSpec struct {
	name     string
	interval time.Duration
	run      func(context.Context) error
}

// Scheduler runs Jobs on fixed intervals
type Scheduler struct {
	sched gocron.Scheduler
}

// New registers the maintenance jobs. Call Start to begin running them.
func New(ctx context.Context, jobs *Jobs) (*Scheduler, error) {
	if jobs.Now == nil {
		jobs.Now = time.Now
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	specs := []jobSpec{
		{"campaign_sync", campaignSyncInterval, jobs.SyncCampaigns},
		{"abandon_sweep", abandonSweepInterval, jobs.SweepAbandoned},
	}
	if jobs.Gifts != nil && jobs.Settings != nil {
		specs = append(specs, jobSpec{"gift_assign", giftAssignInterval, jobs.AssignGifts})
	}

	for _, spec := range specs {
		_, err := sched.NewJob(
			gocron.DurationJob(spec.interval),
			gocron.NewTask(task(ctx, spec.name, spec.run)),
			gocron.WithName(spec.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("failed to schedule %s: %w", spec.name, err)
		}
	}

	return &Scheduler{sched: sched}, nil
}

func task(ctx context.Context, name string, run func(context.Context) error) func() {
	return func() {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		if err := run(jobCtx); err != nil {
			metrics.RecordSchedulerRun(name, "failure")
			slog.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		metrics.RecordSchedulerRun(name, "success")
	}
}

// Start begins running the jobs in the background
func (s *Scheduler) Start() {
	s.sched.Start()
	slog.Info("scheduler started", "jobs", len(s.sched.Jobs()))
}

// Shutdown stops the scheduler and waits for running jobs
func (s *Scheduler) Shutdown() error {
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}
