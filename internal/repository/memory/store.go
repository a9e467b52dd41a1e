// Package memory is an in-process implementation of the repositories, used
// for local runs without Postgres and as the store under test in usecase and
// handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"recruitment-backend/internal/domain"
)

// Submit steps passed to a fault hook
const (
	StepCleared = "cleared"
	StepInsert  = "insert"
)

type application struct {
	status       domain.ApplicationStatus
	competences  []domain.CompetenceEntry
	availability []domain.AvailabilityPeriod
	updatedAt    time.Time
}

func (a *application) clone() *application {
	c := *a
	c.competences = append([]domain.CompetenceEntry(nil), a.competences...)
	c.availability = append([]domain.AvailabilityPeriod(nil), a.availability...)
	return &c
}

var (
	_ domain.ApplicationRepository = (*Store)(nil)
	_ domain.PersonRepository      = (*Store)(nil)
)

// Store holds persons and applications behind one mutex. Writes stage their
// changes on a copy and publish it only when every step succeeded.
type Store struct {
	mu           sync.RWMutex
	persons      map[int64]*domain.Person
	nextPersonID int64
	upgradeCodes map[int64]string
	applications map[int64]*application

	fault func(step string) error
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		persons:      make(map[int64]*domain.Person),
		nextPersonID: 1,
		upgradeCodes: make(map[int64]string),
		applications: make(map[int64]*application),
		now:          time.Now,
	}
}

// InjectFault installs a hook called at each Submit step. A non-nil return
// aborts the submission as a persistence failure would.
func (s *Store) InjectFault(hook func(step string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = hook
}

func (s *Store) step(name string) error {
	if s.fault == nil {
		return nil
	}
	if err := s.fault(name); err != nil {
		return fmt.Errorf("submit interrupted at %s: %w", name, err)
	}
	return nil
}

// Submit implements domain.ApplicationRepository.
func (s *Store) Submit(ctx context.Context, sub *domain.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[sub.PersonID]; !ok {
		return fmt.Errorf("person %d: %w", sub.PersonID, domain.ErrNotFound)
	}

	staged := &application{}
	if cur, ok := s.applications[sub.PersonID]; ok {
		staged = cur.clone()
	}
	staged.status = domain.StatusUnhandled
	staged.updatedAt = s.now()
	staged.competences = nil
	staged.availability = nil
	if err := s.step(StepCleared); err != nil {
		return err
	}

	for _, c := range sub.Competences {
		if err := s.step(StepInsert); err != nil {
			return err
		}
		staged.competences = append(staged.competences, c)
	}
	for _, a := range sub.Availability {
		if err := s.step(StepInsert); err != nil {
			return err
		}
		staged.availability = append(staged.availability, a)
	}

	s.applications[sub.PersonID] = staged
	return nil
}

// Fetch implements domain.ApplicationRepository.
func (s *Store) Fetch(ctx context.Context, personID int64) (*domain.Application, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.applications[personID]
	if !ok {
		return nil, false, nil
	}
	c := cur.clone()
	app := &domain.Application{
		PersonID:     personID,
		Status:       c.status,
		Competences:  c.competences,
		Availability: c.availability,
	}
	if app.Competences == nil {
		app.Competences = []domain.CompetenceEntry{}
	}
	if app.Availability == nil {
		app.Availability = []domain.AvailabilityPeriod{}
	}
	return app, true, nil
}

// ListUnhandled implements domain.ApplicationRepository.
func (s *Store) ListUnhandled(ctx context.Context) ([]domain.ApplicationOverview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := []domain.ApplicationOverview{}
	for id, app := range s.applications {
		if app.status != domain.StatusUnhandled {
			continue
		}
		p, ok := s.persons[id]
		if !ok {
			continue
		}
		c := app.clone()
		list = append(list, domain.ApplicationOverview{
			PersonID:     id,
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			PersonNumber: p.PersonalNumber,
			Email:        p.Email,
			Status:       c.status,
			Competences:  append([]domain.CompetenceEntry{}, c.competences...),
			Availability: append([]domain.AvailabilityPeriod{}, c.availability...),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PersonID < list[j].PersonID })
	return list, nil
}

// TransitionStatus implements domain.ApplicationRepository as a compare-and-swap
// on the status under the write lock.
func (s *Store) TransitionStatus(ctx context.Context, personID int64, target domain.ApplicationStatus) (domain.TransitionResult, error) {
	if !target.IsTerminal() {
		return domain.TransitionResult{}, &domain.ValidationError{
			Field: "status", Value: string(target), Reason: "invalid status", Cause: domain.ErrInvalidStatus,
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.TransitionResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[personID]
	if !ok {
		return domain.TransitionResult{Updated: false}, nil
	}
	if app.status != domain.StatusUnhandled {
		return domain.TransitionResult{Updated: false, CurrentStatus: app.status}, nil
	}
	app.status = target
	app.updatedAt = s.now()
	return domain.TransitionResult{Updated: true}, nil
}

// GetByID implements domain.PersonRepository.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetByUsername implements domain.PersonRepository.
func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if p.Username != "" && p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// FindForUpgrade implements domain.PersonRepository.
func (s *Store) FindForUpgrade(ctx context.Context, email, personalNumber string) (*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if p.Email == email && p.PersonalNumber == personalNumber {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// VerifyUpgradeCode implements domain.PersonRepository.
func (s *Store) VerifyUpgradeCode(ctx context.Context, personID int64, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want, ok := s.upgradeCodes[personID]
	return ok && want == code, nil
}

// SetUpgradeCode issues a one-time upgrade code for a legacy person.
func (s *Store) SetUpgradeCode(personID int64, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upgradeCodes[personID] = code
}

// Create implements domain.PersonRepository. A zero ID is assigned from the
// sequence; a preset ID is kept, which is how legacy persons are seeded.
func (s *Store) Create(ctx context.Context, p *domain.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(p, 0); err != nil {
		return err
	}
	if p.ID == 0 {
		p.ID = s.nextPersonID
	}
	if _, exists := s.persons[p.ID]; exists {
		return fmt.Errorf("person %d already exists", p.ID)
	}
	if p.ID >= s.nextPersonID {
		s.nextPersonID = p.ID + 1
	}
	cp := *p
	s.persons[p.ID] = &cp
	return nil
}

// SetCredentials implements domain.PersonRepository.
func (s *Store) SetCredentials(ctx context.Context, personID int64, code, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[personID]
	if !ok {
		return domain.ErrNotFound
	}
	if want, ok := s.upgradeCodes[personID]; !ok || want != code || p.HasCredentials() {
		return domain.ErrUpgradeConsumed
	}
	if err := s.checkUnique(&domain.Person{Username: username}, personID); err != nil {
		return err
	}
	p.Username = username
	p.PasswordHash = passwordHash
	delete(s.upgradeCodes, personID)
	return nil
}

// UpdatePersonalInfo implements domain.PersonRepository.
func (s *Store) UpdatePersonalInfo(ctx context.Context, in *domain.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[in.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := s.checkUnique(&domain.Person{Email: in.Email, PersonalNumber: in.PersonalNumber}, in.ID); err != nil {
		return err
	}
	p.FirstName = in.FirstName
	p.LastName = in.LastName
	p.Email = in.Email
	p.PersonalNumber = in.PersonalNumber
	return nil
}

// checkUnique mirrors the unique constraints on person, ignoring self.
func (s *Store) checkUnique(p *domain.Person, self int64) error {
	for id, other := range s.persons {
		if id == self {
			continue
		}
		switch {
		case p.Username != "" && other.Username == p.Username:
			return domain.ErrUsernameTaken
		case p.Email != "" && other.Email == p.Email:
			return domain.ErrEmailTaken
		case p.PersonalNumber != "" && other.PersonalNumber == p.PersonalNumber:
			return domain.ErrPnrTaken
		}
	}
	return nil
}
