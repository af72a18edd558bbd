package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/eventman/internal/model"
)

// 一意制約名。マイグレーションの定義と一致させること。
const (
	constraintEventUser = "registrations_event_user_key"
	constraintToken     = "registrations_token_key"
)

// registrationColumns はregistrationsテーブルのSELECT列リスト。
const registrationColumns = `id, event_id, user_id, attendee_name, attendee_email,
	token, status, checked_in, checked_in_at, registered_at, updated_at`

// PostgresRegistrationRepo はPostgreSQLを使用した参加登録リポジトリ。
// 定員カウンタを伴う書き込みは、条件付きUPDATEと台帳書き込みを
// 単一トランザクションにまとめることで、並行登録でも定員を超えないことと
// カウンタが負にならないことを保証する。
type PostgresRegistrationRepo struct {
	db *sql.DB
}

// NewPostgresRegistrationRepo はPostgresRegistrationRepoを生成する。
func NewPostgresRegistrationRepo(db *sql.DB) *PostgresRegistrationRepo {
	return &PostgresRegistrationRepo{db: db}
}

// FindByID は指定IDの登録を取得する。見つからない場合はnilを返す。
func (r *PostgresRegistrationRepo) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("登録の取得に失敗しました: %w", err)
	}
	return reg, nil
}

// FindByEventAndUser はイベントIDとユーザーIDで登録を検索する。
// ステータスは問わない。見つからない場合はnilを返す。
func (r *PostgresRegistrationRepo) FindByEventAndUser(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	))
	if err != nil {
		return nil, fmt.Errorf("イベントとユーザーによる登録の検索に失敗しました: %w", err)
	}
	return reg, nil
}

// FindConfirmedByToken はチェックインコードで確定済み登録を検索する。
// キャンセル済み登録のコードは意図的に解決しない。見つからない場合はnilを返す。
func (r *PostgresRegistrationRepo) FindConfirmedByToken(ctx context.Context, token string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE token = $1 AND status = $2`,
		token, model.RegistrationStatusConfirmed,
	))
	if err != nil {
		return nil, fmt.Errorf("チェックインコードによる登録の検索に失敗しました: %w", err)
	}
	return reg, nil
}

// CreateWithCounter は登録の新規作成とイベントカウンタの加算を
// 同一トランザクションで行う。
// カウンタ加算は registration_count < capacity の条件付きUPDATEで行い、
// 0行更新の場合はErrEventFullを返してロールバックする。
func (r *PostgresRegistrationRepo) CreateWithCounter(ctx context.Context, reg *model.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if err := incrementCounter(ctx, tx, reg.EventID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registrations
		   (id, event_id, user_id, attendee_name, attendee_email,
		    token, status, checked_in, registered_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)`,
		reg.ID, reg.EventID, reg.UserID, reg.AttendeeName, reg.AttendeeEmail,
		reg.Token, reg.Status, reg.RegisteredAt, reg.UpdatedAt,
	)
	if err != nil {
		if dupErr := translateUniqueViolation(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("登録の作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// ReactivateWithCounter はキャンセル済み登録の再有効化とカウンタ加算を
// 同一トランザクションで行う。新しいコードを設定し、古いコードを無効化する。
func (r *PostgresRegistrationRepo) ReactivateWithCounter(ctx context.Context, registrationID, eventID, token string, registeredAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if err := incrementCounter(ctx, tx, eventID); err != nil {
		return err
	}

	// status条件付き更新: 並行する再登録に敗北した場合は0行更新になる
	result, err := tx.ExecContext(ctx,
		`UPDATE registrations
		 SET status = $2, token = $3, registered_at = $4, updated_at = now()
		 WHERE id = $1 AND status = $5`,
		registrationID, model.RegistrationStatusConfirmed, token, registeredAt,
		model.RegistrationStatusCancelled,
	)
	if err != nil {
		if dupErr := translateUniqueViolation(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("登録の再有効化に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDuplicateRegistration
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// CancelWithCounter は登録のキャンセルとカウンタ減算を同一トランザクションで行う。
// 減算は registration_count > 0 の条件付きUPDATEで0に打ち止めされる。
// 二重キャンセルではErrAlreadyCancelledを返し、カウンタには触れない。
func (r *PostgresRegistrationRepo) CancelWithCounter(ctx context.Context, registrationID, eventID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE registrations
		 SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3`,
		registrationID, model.RegistrationStatusCancelled, model.RegistrationStatusConfirmed,
	)
	if err != nil {
		return fmt.Errorf("登録のキャンセルに失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyCancelled
	}

	// 0で打ち止め: 条件を満たさない場合はno-op
	_, err = tx.ExecContext(ctx,
		`UPDATE events
		 SET registration_count = registration_count - 1, updated_at = now()
		 WHERE id = $1 AND registration_count > 0`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("登録数の減算に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// CheckIn はchecked_inをfalseからtrueへ遷移させる。
// WHERE句でstatusとchecked_inを再評価するため、キャンセル直後の
// 古い読み取りに基づく呼び出しは成功しない（0行更新でfalseを返す）。
func (r *PostgresRegistrationRepo) CheckIn(ctx context.Context, registrationID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations
		 SET checked_in = true, checked_in_at = $2, updated_at = now()
		 WHERE id = $1 AND status = $3 AND checked_in = false`,
		registrationID, at, model.RegistrationStatusConfirmed,
	)
	if err != nil {
		return false, fmt.Errorf("チェックインの記録に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected == 1, nil
}

// ListByUserIDWithEvent はユーザーの全登録をイベント情報付きで
// registered_at降順で返す。
func (r *PostgresRegistrationRepo) ListByUserIDWithEvent(ctx context.Context, userID string) ([]RegistrationWithEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			r.id, r.event_id, r.user_id, r.attendee_name, r.attendee_email,
			r.token, r.status, r.checked_in, r.checked_in_at, r.registered_at, r.updated_at,
			e.id, e.organizer_id, e.title, e.description, e.category, e.city, e.state,
			e.start_date, e.capacity, e.registration_count, e.created_at, e.updated_at
		 FROM registrations r
		 JOIN events e ON r.event_id = e.id
		 WHERE r.user_id = $1
		 ORDER BY r.registered_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("登録一覧（イベント情報付き）の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []RegistrationWithEvent
	for rows.Next() {
		var rw RegistrationWithEvent
		var checkedInAt sql.NullTime
		if err := rows.Scan(
			&rw.ID, &rw.EventID, &rw.UserID, &rw.AttendeeName, &rw.AttendeeEmail,
			&rw.Token, &rw.Status, &rw.CheckedIn, &checkedInAt, &rw.RegisteredAt, &rw.Registration.UpdatedAt,
			&rw.Event.ID, &rw.Event.OrganizerID, &rw.Event.Title, &rw.Event.Description,
			&rw.Event.Category, &rw.Event.City, &rw.Event.State,
			&rw.Event.StartDate, &rw.Event.Capacity, &rw.Event.RegistrationCount,
			&rw.Event.CreatedAt, &rw.Event.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("登録行（イベント情報付き）の読み取りに失敗しました: %w", err)
		}
		if checkedInAt.Valid {
			t := checkedInAt.Time
			rw.CheckedInAt = &t
		}
		results = append(results, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("登録一覧（イベント情報付き）の走査に失敗しました: %w", err)
	}
	return results, nil
}

// ListByEventID はイベントの全登録（ステータス不問）を返す。
func (r *PostgresRegistrationRepo) ListByEventID(ctx context.Context, eventID string) ([]*model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("イベントの登録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var regs []*model.Registration
	for rows.Next() {
		reg := &model.Registration{}
		var checkedInAt sql.NullTime
		if err := rows.Scan(
			&reg.ID, &reg.EventID, &reg.UserID, &reg.AttendeeName, &reg.AttendeeEmail,
			&reg.Token, &reg.Status, &reg.CheckedIn, &checkedInAt, &reg.RegisteredAt, &reg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("登録行の読み取りに失敗しました: %w", err)
		}
		if checkedInAt.Valid {
			t := checkedInAt.Time
			reg.CheckedInAt = &t
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベントの登録一覧の走査に失敗しました: %w", err)
	}
	return regs, nil
}

// --- ヘルパー ---

// rowScanner はQueryRowContextの結果を抽象化する。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRegistration は1行のSELECT結果をmodel.Registrationに読み取る。
// sql.ErrNoRowsは(nil, nil)に変換する。
func scanRegistration(row rowScanner) (*model.Registration, error) {
	reg := &model.Registration{}
	var checkedInAt sql.NullTime
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.AttendeeName, &reg.AttendeeEmail,
		&reg.Token, &reg.Status, &reg.CheckedIn, &checkedInAt, &reg.RegisteredAt, &reg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if checkedInAt.Valid {
		t := checkedInAt.Time
		reg.CheckedInAt = &t
	}
	return reg, nil
}

// incrementCounter は定員に空きがある場合のみregistration_countを加算する。
// 定員チェックとカウンタ更新を1文で行うため、並行登録でも定員を超えない。
func incrementCounter(ctx context.Context, tx *sql.Tx, eventID string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE events
		 SET registration_count = registration_count + 1, updated_at = now()
		 WHERE id = $1 AND registration_count < capacity`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("登録数の加算に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ErrEventFull
	}
	return nil
}

// translateUniqueViolation は一意制約違反をセンチネルエラーに変換する。
// 該当しないエラーの場合はnilを返す。
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code.Name() != "unique_violation" {
		return nil
	}
	switch pqErr.Constraint {
	case constraintEventUser:
		return ErrDuplicateRegistration
	case constraintToken:
		return ErrDuplicateToken
	}
	return nil
}

// compile-time interface check
var _ RegistrationRepository = (*PostgresRegistrationRepo)(nil)
