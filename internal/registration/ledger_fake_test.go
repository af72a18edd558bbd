package registration

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// fakeLedger は定員カウンタと登録台帳のトランザクション契約を
// ミューテックスで再現するインメモリ実装。
// 並行登録テストとライフサイクルテストで使用する。
type fakeLedger struct {
	mu    sync.Mutex
	event model.Event
	regs  map[string]*model.Registration // registration ID -> row
}

// fakeLedgerEvents は同じ台帳のイベント側ビュー。
// FindByIDのシグネチャが衝突するため別の型として切り出す。
type fakeLedgerEvents struct {
	ledger *fakeLedger
}

func newFakeLedger(event model.Event) (*fakeLedger, *fakeLedgerEvents) {
	ledger := &fakeLedger{
		event: event,
		regs:  make(map[string]*model.Registration),
	}
	return ledger, &fakeLedgerEvents{ledger: ledger}
}

var _ repository.RegistrationRepository = (*fakeLedger)(nil)
var _ repository.EventRepository = (*fakeLedgerEvents)(nil)

// --- EventRepository ---

func (f *fakeLedgerEvents) FindByID(_ context.Context, id string) (*model.Event, error) {
	f.ledger.mu.Lock()
	defer f.ledger.mu.Unlock()
	if id != f.ledger.event.ID {
		return nil, nil
	}
	snapshot := f.ledger.event
	return &snapshot, nil
}

func (f *fakeLedgerEvents) Create(_ context.Context, _ *model.Event) error {
	return nil
}

func (f *fakeLedgerEvents) ListUpcoming(_ context.Context, _ time.Time, _ int) ([]*model.Event, error) {
	return nil, nil
}

// --- RegistrationRepository ---

func (f *fakeLedger) registrationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.event.RegistrationCount
}

func (f *fakeLedger) FindByID(_ context.Context, id string) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reg, ok := f.regs[id]; ok {
		copied := *reg
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeLedger) FindByEventAndUser(_ context.Context, eventID, userID string) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.regs {
		if reg.EventID == eventID && reg.UserID == userID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) FindConfirmedByToken(_ context.Context, token string) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.regs {
		if reg.Token == token && reg.Status == model.RegistrationStatusConfirmed {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, nil
}

// CreateWithCounter はカウンタ加算と台帳INSERTをアトミックに行う。
// 定員超過、(event,user)重複、トークン重複をDB制約と同様に検出する。
func (f *fakeLedger) CreateWithCounter(_ context.Context, reg *model.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.event.RegistrationCount >= f.event.Capacity {
		return repository.ErrEventFull
	}
	for _, existing := range f.regs {
		if existing.EventID == reg.EventID && existing.UserID == reg.UserID {
			return repository.ErrDuplicateRegistration
		}
		if existing.Token == reg.Token {
			return repository.ErrDuplicateToken
		}
	}

	f.event.RegistrationCount++
	copied := *reg
	f.regs[reg.ID] = &copied
	return nil
}

// ReactivateWithCounter はカウンタ加算とキャンセル済み行の再有効化を
// アトミックに行う。status・token・registered_at・updated_at以外の列は
// 変更しない（checked_inはfalse→trueの一方向遷移のまま残る）。
func (f *fakeLedger) ReactivateWithCounter(_ context.Context, registrationID, _, token string, registeredAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	reg := f.regs[registrationID]
	if reg == nil || reg.Status != model.RegistrationStatusCancelled {
		return repository.ErrDuplicateRegistration
	}
	if f.event.RegistrationCount >= f.event.Capacity {
		return repository.ErrEventFull
	}
	for _, existing := range f.regs {
		if existing.ID != registrationID && existing.Token == token {
			return repository.ErrDuplicateToken
		}
	}

	f.event.RegistrationCount++
	reg.Status = model.RegistrationStatusConfirmed
	reg.Token = token
	reg.RegisteredAt = registeredAt
	reg.UpdatedAt = registeredAt
	return nil
}

// CancelWithCounter はステータス変更とカウンタ減算をアトミックに行う。
// 減算は0で打ち止めされる。
func (f *fakeLedger) CancelWithCounter(_ context.Context, registrationID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	reg := f.regs[registrationID]
	if reg == nil || reg.Status == model.RegistrationStatusCancelled {
		return repository.ErrAlreadyCancelled
	}

	reg.Status = model.RegistrationStatusCancelled
	reg.UpdatedAt = time.Now()
	if f.event.RegistrationCount > 0 {
		f.event.RegistrationCount--
	}
	return nil
}

func (f *fakeLedger) CheckIn(_ context.Context, registrationID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reg := f.regs[registrationID]
	if reg == nil || reg.Status != model.RegistrationStatusConfirmed || reg.CheckedIn {
		return false, nil
	}
	reg.CheckedIn = true
	reg.CheckedInAt = &at
	reg.UpdatedAt = at
	return true, nil
}

func (f *fakeLedger) ListByUserIDWithEvent(_ context.Context, _ string) ([]repository.RegistrationWithEvent, error) {
	return nil, nil
}

func (f *fakeLedger) ListByEventID(_ context.Context, eventID string) ([]*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Registration
	for _, reg := range f.regs {
		if reg.EventID == eventID {
			copied := *reg
			result = append(result, &copied)
		}
	}
	return result, nil
}
