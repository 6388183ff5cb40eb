package analytics

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"funnelbot/models"
)

// Reader computes funnel statistics from the delivery and click logs. A
// click counts as a reaction only when it lands within Window of the
// step's delivery.
type Reader struct {
	DB     *gorm.DB
	Window time.Duration
}

func NewReader(db *gorm.DB, window time.Duration) *Reader {
	return &Reader{DB: db, Window: window}
}

// StepStats aggregates per-step delivery counts, reactions and reaction
// latency for a sequence kind, ordered by step.
func (r *Reader) StepStats(kind models.Kind) ([]StepStats, error) {
	byStep := make(map[int]*StepStats)

	type deliveredRow struct {
		Step  int
		Count int
	}
	var delivered []deliveredRow
	err := r.DB.Raw(`
		SELECT step, COUNT(DISTINCT user_id) AS count
		FROM delivery_logs
		WHERE kind = ?
		GROUP BY step`, string(kind)).Scan(&delivered).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating deliveries: %w", err)
	}
	for _, row := range delivered {
		byStep[row.Step] = &StepStats{Step: row.Step, Delivered: row.Count}
	}

	minutes := int(r.Window.Minutes())

	type reactedRow struct {
		Step       int
		ButtonKind string
		Count      int
	}
	var reacted []reactedRow
	err = r.DB.Raw(`
		SELECT d.step, c.button_kind, COUNT(DISTINCT c.user_id) AS count
		FROM delivery_logs d
		JOIN click_logs c
		  ON c.user_id = d.user_id
		 AND c.kind = d.kind
		 AND c.step = d.step
		 AND c.clicked_at >= d.delivered_at
		 AND c.clicked_at < d.delivered_at + (? * interval '1 minute')
		WHERE d.kind = ?
		GROUP BY d.step, c.button_kind`, minutes, string(kind)).Scan(&reacted).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating reactions: %w", err)
	}
	for _, row := range reacted {
		s, ok := byStep[row.Step]
		if !ok {
			continue
		}
		switch row.ButtonKind {
		case models.ButtonKindCallback:
			s.ReactedCallback = row.Count
		case models.ButtonKindURL:
			s.ReactedURL = row.Count
		}
	}

	type latencyRow struct {
		Step       int
		AvgSeconds float64
	}
	var latencies []latencyRow
	err = r.DB.Raw(`
		SELECT d.step, AVG(EXTRACT(EPOCH FROM (fc.first_click - d.delivered_at))) AS avg_seconds
		FROM delivery_logs d
		JOIN (
			SELECT user_id, kind, step, MIN(clicked_at) AS first_click
			FROM click_logs
			GROUP BY user_id, kind, step
		) fc
		  ON fc.user_id = d.user_id
		 AND fc.kind = d.kind
		 AND fc.step = d.step
		WHERE d.kind = ?
		  AND fc.first_click >= d.delivered_at
		  AND fc.first_click < d.delivered_at + (? * interval '1 minute')
		GROUP BY d.step`, string(kind), minutes).Scan(&latencies).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating reaction latency: %w", err)
	}
	for _, row := range latencies {
		if s, ok := byStep[row.Step]; ok {
			s.AvgReactionSeconds = row.AvgSeconds
		}
	}

	steps := make([]StepStats, 0, len(byStep))
	for _, s := range byStep {
		steps = append(steps, *s)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step })
	Finalize(steps)
	return steps, nil
}

// RecentDeliveries returns the newest delivery log rows across all kinds,
// for the live admin feed.
func (r *Reader) RecentDeliveries(limit int) ([]models.DeliveryLog, error) {
	var logs []models.DeliveryLog
	err := r.DB.Order("delivered_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
