package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/feedbackpulse/internal/domain"
)

const feedbackColumns = `id, user_id, content, sentiment, sentiment_score::float8, source, created_at`

// maxListLimit caps listings that do not ask for a smaller page.
const maxListLimit = 500

type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

func scanFeedback(row pgx.Row) (*domain.Feedback, error) {
	var f domain.Feedback
	var sentiment, source string
	if err := row.Scan(&f.ID, &f.UserID, &f.Content, &sentiment, &f.SentimentScore, &source, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Sentiment = domain.Sentiment(sentiment)
	f.Source = domain.ClassificationSource(source)
	return &f, nil
}

// Create inserts feedback and fills in its generated ID. A zero CreatedAt is
// set by the database. The score is stored with two decimals.
func (r *FeedbackRepo) Create(ctx context.Context, feedback *domain.Feedback) error {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO feedback (user_id, content, sentiment, sentiment_score, source, created_at)
		 VALUES ($1, $2, $3, ROUND($4::numeric, 2), $5, COALESCE($6::timestamptz, NOW()))
		 RETURNING `+feedbackColumns,
		feedback.UserID, feedback.Content, string(feedback.Sentiment), feedback.SentimentScore, string(feedback.Source),
		nullableTime(feedback.CreatedAt),
	)

	created, err := scanFeedback(row)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	*feedback = *created
	return nil
}

func (r *FeedbackRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Feedback, error) {
	f, err := scanFeedback(r.pool.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFeedbackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback by ID: %w", err)
	}
	return f, nil
}

// List returns feedback newest first.
func (r *FeedbackRepo) List(ctx context.Context, filter domain.FeedbackFilter) ([]*domain.Feedback, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Sentiment != "" {
		args = append(args, string(filter.Sentiment))
		conds = append(conds, fmt.Sprintf("sentiment = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + feedbackColumns + ` FROM feedback`)
	if len(conds) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(conds, " AND "))
	}
	fmt.Fprintf(&sb, ` ORDER BY created_at DESC, id LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var result []*domain.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return result, nil
}

func (r *FeedbackRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}

// CountBySentiment counts feedback per label, for one user or, with a nil
// userID, for everyone.
func (r *FeedbackRepo) CountBySentiment(ctx context.Context, userID *uuid.UUID) (domain.SentimentCounts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sentiment, COUNT(*)
		 FROM feedback
		 WHERE $1::uuid IS NULL OR user_id = $1
		 GROUP BY sentiment`,
		userID,
	)
	if err != nil {
		return domain.SentimentCounts{}, fmt.Errorf("failed to count feedback: %w", err)
	}
	defer rows.Close()

	var counts domain.SentimentCounts
	for rows.Next() {
		var sentiment string
		var n int
		if err := rows.Scan(&sentiment, &n); err != nil {
			return domain.SentimentCounts{}, fmt.Errorf("failed to scan feedback count: %w", err)
		}
		counts.Add(domain.Sentiment(sentiment), n)
	}
	if err := rows.Err(); err != nil {
		return domain.SentimentCounts{}, fmt.Errorf("failed to count feedback: %w", err)
	}
	return counts, nil
}
