package scheduler

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/expanders360/vendor-match/internal/model"
	"github.com/expanders360/vendor-match/internal/sla"
	"github.com/expanders360/vendor-match/internal/stats"
	"github.com/expanders360/vendor-match/pkg/mailer"
)

// statsWindow is how far back the weekly report looks.
const statsWindow = 7 * 24 * time.Hour

// Rebuilder recomputes matches for one project.
type Rebuilder interface {
	Rebuild(ctx context.Context, projectID int64) ([]model.Match, error)
}

// RefreshStore lists the projects eligible for a refresh sweep.
type RefreshStore interface {
	ListActiveProjects(ctx context.Context) ([]model.Project, error)
}

// ReportSender delivers operational emails to the admin inbox.
type ReportSender interface {
	SendReport(ctx context.Context, to, subject, htmlBody string) (*mailer.Delivery, error)
}

// RefreshJob rebuilds matches for every active project, pacing the sweep
// so a large project list does not hammer the database. A failed project
// is logged and skipped; the sweep always visits every project.
type RefreshJob struct {
	store      RefreshStore
	engine     Rebuilder
	mail       ReportSender
	adminEmail string
	pace       time.Duration
}

func NewRefreshJob(store RefreshStore, engine Rebuilder, mail ReportSender, adminEmail string, pace time.Duration) *RefreshJob {
	return &RefreshJob{
		store:      store,
		engine:     engine,
		mail:       mail,
		adminEmail: adminEmail,
		pace:       pace,
	}
}

func (j *RefreshJob) Name() string { return "refresh-matches" }

func (j *RefreshJob) Run(ctx context.Context) Report {
	log := zap.L().With(zap.String("job", j.Name()))

	projects, err := j.store.ListActiveProjects(ctx)
	if err != nil {
		return Report{
			Outcome: OutcomeFailed,
			Err:     eris.Wrap(err, "scheduler: list active projects"),
		}
	}

	limiter := rate.NewLimiter(rate.Every(j.pace), 1)

	var succeeded, failed int
	for _, p := range projects {
		if err := limiter.Wait(ctx); err != nil {
			return Report{
				Outcome:   OutcomeFailed,
				Total:     len(projects),
				Succeeded: succeeded,
				Failed:    failed,
				Err:       eris.Wrap(err, "scheduler: refresh sweep interrupted"),
			}
		}

		matches, err := j.engine.Rebuild(ctx, p.ID)
		if err != nil {
			failed++
			log.Error("project refresh failed",
				zap.Int64("project_id", p.ID),
				zap.Error(err))
			continue
		}
		succeeded++
		log.Debug("project refreshed",
			zap.Int64("project_id", p.ID),
			zap.Int("matches", len(matches)))
	}

	if failed > 0 {
		j.sendSummary(ctx, log, len(projects), succeeded, failed)
	}

	outcome := OutcomeSucceeded
	switch {
	case len(projects) > 0 && failed == len(projects):
		outcome = OutcomeFailed
	case failed > 0:
		outcome = OutcomePartiallyFailed
	}
	return Report{
		Outcome:   outcome,
		Total:     len(projects),
		Succeeded: succeeded,
		Failed:    failed,
	}
}

func (j *RefreshJob) sendSummary(ctx context.Context, log *zap.Logger, total, succeeded, failed int) {
	body, err := renderRefreshSummary(total, succeeded, failed)
	if err != nil {
		log.Error("render refresh summary", zap.Error(err))
		return
	}
	if _, err := j.mail.SendReport(ctx, j.adminEmail, "Daily Match Refresh Summary - Errors Detected", body); err != nil {
		log.Error("send refresh summary", zap.Error(err))
	}
}

// ExpiryFinder reports vendors whose latest match has outlived its SLA.
type ExpiryFinder interface {
	FindExpired(ctx context.Context, asOf time.Time) ([]sla.Expired, error)
}

// SLAJob checks vendor response deadlines and sends one consolidated
// alert covering every expired vendor. Delivery failures are logged but
// never fail the run.
type SLAJob struct {
	monitor    ExpiryFinder
	mail       ReportSender
	adminEmail string
	now        func() time.Time
}

func NewSLAJob(monitor ExpiryFinder, mail ReportSender, adminEmail string) *SLAJob {
	return &SLAJob{
		monitor:    monitor,
		mail:       mail,
		adminEmail: adminEmail,
		now:        time.Now,
	}
}

func (j *SLAJob) Name() string { return "monitor-sla" }

func (j *SLAJob) Run(ctx context.Context) Report {
	log := zap.L().With(zap.String("job", j.Name()))

	expired, err := j.monitor.FindExpired(ctx, j.now().UTC())
	if err != nil {
		return Report{
			Outcome: OutcomeFailed,
			Err:     eris.Wrap(err, "scheduler: find expired SLAs"),
		}
	}

	if len(expired) == 0 {
		log.Info("all vendors within SLA")
		return Report{Outcome: OutcomeSucceeded}
	}

	log.Warn("vendors past SLA", zap.Int("expired", len(expired)))

	body, err := renderSLAAlert(expired)
	if err != nil {
		log.Error("render SLA alert", zap.Error(err))
	} else if _, err := j.mail.SendReport(ctx, j.adminEmail, "SLA Alert: Vendors Past Response Deadline", body); err != nil {
		log.Error("send SLA alert", zap.Error(err))
	}

	return Report{
		Outcome:   OutcomeSucceeded,
		Total:     len(expired),
		Succeeded: len(expired),
	}
}

// WeeklyAggregator builds the weekly matching summary.
type WeeklyAggregator interface {
	Weekly(ctx context.Context, windowStart time.Time) (*stats.Summary, error)
}

// StatsJob aggregates the past week of matching activity and emails the
// report unconditionally, even for a quiet week.
type StatsJob struct {
	aggregator WeeklyAggregator
	mail       ReportSender
	adminEmail string
	now        func() time.Time
}

func NewStatsJob(aggregator WeeklyAggregator, mail ReportSender, adminEmail string) *StatsJob {
	return &StatsJob{
		aggregator: aggregator,
		mail:       mail,
		adminEmail: adminEmail,
		now:        time.Now,
	}
}

func (j *StatsJob) Name() string { return "weekly-stats" }

func (j *StatsJob) Run(ctx context.Context) Report {
	log := zap.L().With(zap.String("job", j.Name()))

	windowStart := j.now().UTC().Add(-statsWindow)
	summary, err := j.aggregator.Weekly(ctx, windowStart)
	if err != nil {
		return Report{
			Outcome: OutcomeFailed,
			Err:     eris.Wrap(err, "scheduler: aggregate weekly stats"),
		}
	}

	log.Info("weekly stats aggregated",
		zap.Int("total_matches", summary.TotalMatches),
		zap.Float64("average_score", summary.AverageScore))

	body, err := renderWeeklyReport(summary)
	if err != nil {
		log.Error("render weekly report", zap.Error(err))
	} else if _, err := j.mail.SendReport(ctx, j.adminEmail, "Weekly Matching Statistics Report", body); err != nil {
		log.Error("send weekly report", zap.Error(err))
	}

	return Report{
		Outcome:   OutcomeSucceeded,
		Total:     summary.TotalMatches,
		Succeeded: summary.TotalMatches,
	}
}
