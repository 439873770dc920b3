package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

type DailyStats struct {
	Date      time.Time `json:"date"`
	Forwarded int       `json:"forwarded"`
	Dropped   int       `json:"dropped"`
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// IncrementForwarded adds n to today's forwarded counter
func (r *StatsRepository) IncrementForwarded(userID int64, n int) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO forward_stats (user_id, day, forwarded, dropped)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_id, day)
		DO UPDATE SET forwarded = forward_stats.forwarded + $3
	`, userID, today, n)
	return err
}

// IncrementDropped adds n to today's dropped counter
func (r *StatsRepository) IncrementDropped(userID int64, n int) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO forward_stats (user_id, day, forwarded, dropped)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id, day)
		DO UPDATE SET dropped = forward_stats.dropped + $3
	`, userID, today, n)
	return err
}

// GetHistory returns the last N days of counters for a user
func (r *StatsRepository) GetHistory(userID int64, days int) ([]DailyStats, error) {
	startDate := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := r.db.Query(context.Background(), `
		SELECT day, forwarded, dropped
		FROM forward_stats
		WHERE user_id = $1 AND day >= $2
		ORDER BY day ASC
	`, userID, startDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []DailyStats{}
	for rows.Next() {
		var s DailyStats
		if err := rows.Scan(&s.Date, &s.Forwarded, &s.Dropped); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
