package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const exportTimeout = 5 * time.Minute

// ReportScheduler exports the previous day's orders on a cron schedule.
type ReportScheduler struct {
	cron          *cron.Cron
	reportService service.ReportService
	schedule      string
	now           func() time.Time
}

func NewReportScheduler(reportService service.ReportService, schedule string) *ReportScheduler {
	return &ReportScheduler{
		cron:          cron.New(),
		reportService: reportService,
		schedule:      schedule,
		now:           time.Now,
	}
}

// previousDay is the [start, end) range of the day before now, in now's location.
func previousDay(now time.Time) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return end.AddDate(0, 0, -1), end
}

// RunOnce exports the previous day's orders.
func (s *ReportScheduler) RunOnce(ctx context.Context) error {
	from, to := previousDay(s.now())
	logger.Info("Starting scheduled order report", map[string]interface{}{
		"from": from.Format(time.RFC3339),
		"to":   to.Format(time.RFC3339),
	})

	obj, err := s.reportService.ExportOrders(ctx, &from, &to)
	if err != nil {
		logger.Error("Scheduled order report failed", err)
		return err
	}

	logger.Info("Scheduled order report uploaded", map[string]interface{}{
		"key": obj.Key,
	})
	return nil
}

func (s *ReportScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()
		_ = s.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("Failed to add cron job for order report", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Order report scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

// Stop waits for a running export to finish.
func (s *ReportScheduler) Stop() {
	logger.Info("Stopping order report scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Order report scheduler stopped")
}
