package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/eventman/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	event := &model.Event{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, organizer_id, title, description, category, city, state,
		        start_date, capacity, registration_count, created_at, updated_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(
		&event.ID, &event.OrganizerID, &event.Title, &event.Description,
		&event.Category, &event.City, &event.State,
		&event.StartDate, &event.Capacity, &event.RegistrationCount,
		&event.CreatedAt, &event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}

	return event, nil
}

// Create はイベントを作成する。registration_countは0で初期化される。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, organizer_id, title, description, category, city, state,
		                     start_date, capacity, registration_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)`,
		event.ID, event.OrganizerID, event.Title, event.Description,
		event.Category, event.City, event.State,
		event.StartDate, event.Capacity, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}
	return nil
}

// ListUpcoming は開催日時がfrom以降のイベントをstart_date昇順で返す。
func (r *PostgresEventRepo) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, organizer_id, title, description, category, city, state,
		        start_date, capacity, registration_count, created_at, updated_at
		 FROM events
		 WHERE start_date >= $1
		 ORDER BY start_date ASC
		 LIMIT $2`,
		from, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event := &model.Event{}
		if err := rows.Scan(
			&event.ID, &event.OrganizerID, &event.Title, &event.Description,
			&event.Category, &event.City, &event.State,
			&event.StartDate, &event.Capacity, &event.RegistrationCount,
			&event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("イベント行の読み取りに失敗しました: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベント一覧の走査に失敗しました: %w", err)
	}
	return events, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
