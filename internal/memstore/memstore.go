// Package memstore keeps every engine record in process memory. It backs the
// "memory" store driver and the service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"growth-engine/internal/clock"
	"growth-engine/internal/ledger"
	"growth-engine/internal/models"
)

type statusKey struct {
	userID, programID string
	day               int
	taskID            string
}

type useKey struct {
	codeID int64
	userID string
}

type state struct {
	profiles     map[string]models.Profile
	statuses     map[statusKey]models.UserTaskStatus
	transactions []models.CreditTransaction
	codes        map[string]models.RedeemCode
	uses         map[useKey]models.RedeemCodeUse
	usages       []models.AIUsage
	kpis         []models.KPIEntry
	nextID       int64
}

func newState() state {
	return state{
		profiles: make(map[string]models.Profile),
		statuses: make(map[statusKey]models.UserTaskStatus),
		codes:    make(map[string]models.RedeemCode),
		uses:     make(map[useKey]models.RedeemCodeUse),
	}
}

func (s state) clone() state {
	c := state{
		profiles:     make(map[string]models.Profile, len(s.profiles)),
		statuses:     make(map[statusKey]models.UserTaskStatus, len(s.statuses)),
		transactions: append([]models.CreditTransaction(nil), s.transactions...),
		codes:        make(map[string]models.RedeemCode, len(s.codes)),
		uses:         make(map[useKey]models.RedeemCodeUse, len(s.uses)),
		usages:       append([]models.AIUsage(nil), s.usages...),
		kpis:         append([]models.KPIEntry(nil), s.kpis...),
		nextID:       s.nextID,
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.statuses {
		c.statuses[k] = v
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	for k, v := range s.uses {
		c.uses[k] = v
	}
	return c
}

// Store is safe for concurrent use. Ledger transactions hold the store lock
// for their whole duration and are rolled back by restoring a snapshot.
type Store struct {
	mu    sync.Mutex
	clock clock.Clock
	st    state
}

func New(clk clock.Clock) *Store {
	return &Store{clock: clk, st: newState()}
}

func (s *Store) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

func cloneProfile(p models.Profile) *models.Profile {
	if p.Onboarding != nil {
		o := *p.Onboarding
		o.Platform = append([]string(nil), o.Platform...)
		o.ProductType = append([]string(nil), o.ProductType...)
		o.Goal = append([]string(nil), o.Goal...)
		p.Onboarding = &o
	}
	return &p
}

// Profiles

func (s *Store) CreateProfileIfAbsent(_ context.Context, p *models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.st.profiles[p.ID]; ok {
		return cloneProfile(existing), nil
	}
	now := s.clock.Now()
	stored := *cloneProfile(*p)
	stored.CreatedAt, stored.UpdatedAt = now, now
	s.st.profiles[p.ID] = stored
	return cloneProfile(stored), nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProfile(userID)
}

func (s *Store) getProfile(userID string) (*models.Profile, error) {
	p, ok := s.st.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	}
	return cloneProfile(p), nil
}

func (s *Store) update(userID string, fn func(p *models.Profile) bool) (*models.Profile, bool, error) {
	p, ok := s.st.profiles[userID]
	if !ok {
		return nil, false, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	}
	if !fn(&p) {
		return cloneProfile(p), false, nil
	}
	p.UpdatedAt = s.clock.Now()
	s.st.profiles[userID] = p
	return cloneProfile(p), true, nil
}

func (s *Store) SaveOnboarding(_ context.Context, userID string, o *models.Onboarding, program string, day int) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _, err := s.update(userID, func(p *models.Profile) bool {
		if p.Onboarding == nil {
			p.CurrentProgram = program
			p.CurrentDay = day
		}
		p.Onboarding = cloneProfile(models.Profile{Onboarding: o}).Onboarding
		return true
	})
	return p, err
}

func (s *Store) SetPlan(_ context.Context, userID string, plan models.Plan) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _, err := s.update(userID, func(p *models.Profile) bool {
		p.Plan = plan
		return true
	})
	return p, err
}

func (s *Store) AdvanceDay(_ context.Context, userID string, fromDay int, taskIDs []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok, err := s.update(userID, func(p *models.Profile) bool {
		if p.CurrentDay != fromDay {
			return false
		}
		for _, id := range taskIDs {
			key := statusKey{userID: userID, programID: p.CurrentProgram, day: fromDay, taskID: id}
			if !s.st.statuses[key].Status.Settled() {
				return false
			}
		}
		p.CurrentDay++
		return true
	})
	return ok, err
}

func (s *Store) MoveProgram(_ context.Context, userID, fromProgram string, fromDay int, toProgram string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok, err := s.update(userID, func(p *models.Profile) bool {
		if p.CurrentProgram != fromProgram || p.CurrentDay != fromDay {
			return false
		}
		p.CurrentProgram = toProgram
		p.CurrentDay = 1
		return true
	})
	return ok, err
}

func (s *Store) InsertKPIEntry(_ context.Context, e *models.KPIEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now()
	}
	s.st.kpis = append(s.st.kpis, *e)
	return nil
}

func (s *Store) ListKPIEntries(_ context.Context, userID string) ([]models.KPIEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.KPIEntry
	for _, e := range s.st.kpis {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Task statuses

func (s *Store) ListStatuses(_ context.Context, userID, programID string, day int) ([]models.UserTaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.UserTaskStatus
	for k, v := range s.st.statuses {
		if k.userID == userID && k.programID == programID && k.day == day {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertStatus(_ context.Context, row *models.UserTaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := statusKey{userID: row.UserID, programID: row.ProgramID, day: row.Day, taskID: row.TaskID}
	now := s.clock.Now()
	existing, ok := s.st.statuses[key]
	if ok {
		existing.Status = row.Status
		existing.CompletedAt = row.CompletedAt
		existing.UpdatedAt = now
		s.st.statuses[key] = existing
		*row = existing
		return nil
	}

	row.ID = s.id()
	row.CreatedAt, row.UpdatedAt = now, now
	s.st.statuses[key] = *row
	return nil
}

// CountStatuses returns how many status rows exist for the user.
func (s *Store) CountStatuses(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.st.statuses {
		if k.userID == userID {
			n++
		}
	}
	return n
}

// Ledger

func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.st.clone()
	if err := fn(&tx{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) SumTransactions(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, t := range s.st.transactions {
		if t.UserID == userID {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]models.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CreditTransaction
	for _, t := range s.st.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) ListAIUsages(_ context.Context, userID string) ([]models.AIUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AIUsage
	for _, u := range s.st.usages {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) CreateRedeemCode(_ context.Context, c *models.RedeemCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.codes[c.Code]; ok {
		return fmt.Errorf("redeem code %s: %w", c.Code, models.ErrDuplicate)
	}
	c.ID = s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock.Now()
	}
	s.st.codes[c.Code] = *c
	return nil
}

func (s *Store) GetRedeemCode(_ context.Context, code string) (*models.RedeemCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.codes[code]
	if !ok {
		return nil, fmt.Errorf("redeem code %s: %w", code, models.ErrNotFound)
	}
	return &c, nil
}

// tx runs with the store lock already held.
type tx struct {
	s *Store
}

func (t *tx) GetProfileForUpdate(_ context.Context, userID string) (*models.Profile, error) {
	return t.s.getProfile(userID)
}

func (t *tx) GetRedeemCode(_ context.Context, code string) (*models.RedeemCode, error) {
	c, ok := t.s.st.codes[code]
	if !ok {
		return nil, fmt.Errorf("redeem code %s: %w", code, models.ErrNotFound)
	}
	return &c, nil
}

func (t *tx) HasRedeemUse(_ context.Context, codeID int64, userID string) (bool, error) {
	_, ok := t.s.st.uses[useKey{codeID: codeID, userID: userID}]
	return ok, nil
}

func (t *tx) InsertRedeemUse(_ context.Context, codeID int64, userID string) (bool, error) {
	key := useKey{codeID: codeID, userID: userID}
	if _, ok := t.s.st.uses[key]; ok {
		return false, nil
	}
	t.s.st.uses[key] = models.RedeemCodeUse{
		ID:        t.s.id(),
		CodeID:    codeID,
		UserID:    userID,
		CreatedAt: t.s.clock.Now(),
	}
	return true, nil
}

func (t *tx) IncrementCodeUse(_ context.Context, codeID int64) (bool, error) {
	for k, c := range t.s.st.codes {
		if c.ID != codeID {
			continue
		}
		if c.UsedCount >= c.MaxUses {
			return false, nil
		}
		c.UsedCount++
		t.s.st.codes[k] = c
		return true, nil
	}
	return false, fmt.Errorf("redeem code id %d: %w", codeID, models.ErrNotFound)
}

func (t *tx) AppendTransaction(_ context.Context, ct *models.CreditTransaction) error {
	ct.ID = t.s.id()
	if ct.CreatedAt.IsZero() {
		ct.CreatedAt = t.s.clock.Now()
	}
	t.s.st.transactions = append(t.s.st.transactions, *ct)
	return nil
}

func (t *tx) AdjustBalance(_ context.Context, userID string, delta int) (int, error) {
	p, ok := t.s.st.profiles[userID]
	if !ok {
		return 0, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	}
	if p.CreditsBalance+delta < 0 {
		return p.CreditsBalance, models.ErrInsufficientBalance
	}
	p.CreditsBalance += delta
	p.UpdatedAt = t.s.clock.Now()
	t.s.st.profiles[userID] = p
	return p.CreditsBalance, nil
}

func (t *tx) InsertAIUsage(_ context.Context, u *models.AIUsage) error {
	u.ID = t.s.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = t.s.clock.Now()
	}
	t.s.st.usages = append(t.s.st.usages, *u)
	return nil
}
