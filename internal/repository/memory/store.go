// Package memory is an in-process implementation of the repository
// interfaces for local development and tests. Transactions are serialized and
// rolled back through an undo log.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository"
)

// Store holds every collection.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users        map[string]domain.User
	programs     map[primitive.ObjectID]domain.Program
	plans        map[primitive.ObjectID]domain.WorkoutPlan
	workouts     map[primitive.ObjectID]domain.Workout
	exercises    map[primitive.ObjectID]domain.WorkoutExercise
	library      map[primitive.ObjectID]domain.ExerciseLibraryEntry
	libraryByKey map[string]primitive.ObjectID
	logs         []domain.GenerationLog
	checkIns     []domain.CheckIn
	workoutLogs  map[string]int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		programs:     make(map[primitive.ObjectID]domain.Program),
		plans:        make(map[primitive.ObjectID]domain.WorkoutPlan),
		workouts:     make(map[primitive.ObjectID]domain.Workout),
		exercises:    make(map[primitive.ObjectID]domain.WorkoutExercise),
		library:      make(map[primitive.ObjectID]domain.ExerciseLibraryEntry),
		libraryByKey: make(map[string]primitive.ObjectID),
		workoutLogs:  make(map[string]int64),
	}
}

type txKey struct{}

type txn struct {
	undo []func()
}

// record registers an undo step when ctx is inside a transaction. Callers hold s.mu.
func record(ctx context.Context, fn func()) {
	if tx, ok := ctx.Value(txKey{}).(*txn); ok {
		tx.undo = append(tx.undo, fn)
	}
}

// WithTransaction implements repository.Transactor.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(txKey{}).(*txn); nested {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txn{}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Transactor exposes the store as a repository.Transactor.
func (s *Store) Transactor() repository.Transactor { return s }

// --- Seeding and inspection ---

// PutUser inserts or replaces a user record.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddCheckIn stores a check-in as the progress subsystem would.
func (s *Store) AddCheckIn(c domain.CheckIn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.checkIns = append(s.checkIns, c)
}

// SetCompletedWorkouts sets the completed workout count of a user.
func (s *Store) SetCompletedWorkouts(userID string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workoutLogs[userID] = n
}

// Counts reports collection sizes.
type Counts struct {
	Programs, Plans, Workouts, Exercises, Library, Logs int
}

func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Programs:  len(s.programs),
		Plans:     len(s.plans),
		Workouts:  len(s.workouts),
		Exercises: len(s.exercises),
		Library:   len(s.library),
		Logs:      len(s.logs),
	}
}

// --- Users ---

type userRepo struct{ s *Store }

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) EnsureUser(ctx context.Context, id string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; ok {
		return nil
	}
	r.s.users[id] = domain.User{ID: id, Tier: domain.TierFree, ResetAt: now, CreatedAt: now, UpdatedAt: now}
	record(ctx, func() { delete(r.s.users, id) })
	return nil
}

func (r *userRepo) ResetCreditsBefore(ctx context.Context, id string, monthStart, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || !u.ResetAt.Before(monthStart) {
		return false, nil
	}
	prev := u
	u.GenerationsThisMonth = 0
	u.ResetAt = now
	u.UpdatedAt = now
	r.s.users[id] = u
	record(ctx, func() { r.s.users[id] = prev })
	return true, nil
}

func (r *userRepo) IncrementGenerations(ctx context.Context, id string, ceiling int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if ceiling > 0 && u.GenerationsThisMonth >= ceiling {
		return 0, repository.ErrQuotaCeiling
	}
	u.GenerationsThisMonth++
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	record(ctx, func() {
		if cur, ok := r.s.users[id]; ok {
			cur.GenerationsThisMonth--
			r.s.users[id] = cur
		}
	})
	return u.GenerationsThisMonth, nil
}

// --- Programs ---

type programRepo struct{ s *Store }

func (s *Store) Programs() repository.ProgramRepository { return &programRepo{s} }

func (r *programRepo) Create(ctx context.Context, p *domain.Program) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.programs[p.ID] = *p
	id := p.ID
	record(ctx, func() { delete(r.s.programs, id) })
	return p.ID, nil
}

func (r *programRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// --- Workout plans ---

type planRepo struct{ s *Store }

func (s *Store) WorkoutPlans() repository.WorkoutPlanRepository { return &planRepo{s} }

func (r *planRepo) Create(ctx context.Context, p *domain.WorkoutPlan) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.plans {
		if existing.ProgramID == p.ProgramID && existing.PhaseNumber == p.PhaseNumber {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.plans[p.ID] = *p
	id := p.ID
	record(ctx, func() { delete(r.s.plans, id) })
	return p.ID, nil
}

func (r *planRepo) GetByProgramID(_ context.Context, programID primitive.ObjectID) ([]domain.WorkoutPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	plans := []domain.WorkoutPlan{}
	for _, p := range r.s.plans {
		if p.ProgramID == programID {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].PhaseNumber < plans[j].PhaseNumber })
	return plans, nil
}

// --- Workouts ---

type workoutRepo struct{ s *Store }

func (s *Store) Workouts() repository.WorkoutRepository { return &workoutRepo{s} }

func (r *workoutRepo) Create(ctx context.Context, w *domain.Workout) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	r.s.workouts[w.ID] = *w
	id := w.ID
	record(ctx, func() { delete(r.s.workouts, id) })
	return w.ID, nil
}

func (r *workoutRepo) GetByPlanID(_ context.Context, planID primitive.ObjectID) ([]domain.Workout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Workout{}
	for _, w := range r.s.workouts {
		if w.WorkoutPlanID == planID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}

// --- Exercise instances ---

type exerciseRepo struct{ s *Store }

func (s *Store) WorkoutExercises() repository.WorkoutExerciseRepository { return &exerciseRepo{s} }

func (r *exerciseRepo) CreateMany(ctx context.Context, exercises []domain.WorkoutExercise) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	for i := range exercises {
		exercises[i].ID = primitive.NewObjectID()
		exercises[i].CreatedAt = now
		r.s.exercises[exercises[i].ID] = exercises[i]
		id := exercises[i].ID
		record(ctx, func() { delete(r.s.exercises, id) })
	}
	return nil
}

func (r *exerciseRepo) GetByWorkoutID(_ context.Context, workoutID primitive.ObjectID) ([]domain.WorkoutExercise, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.WorkoutExercise{}
	for _, e := range r.s.exercises {
		if e.WorkoutID == workoutID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// --- Exercise library ---

type libraryRepo struct{ s *Store }

func (s *Store) ExerciseLibrary() repository.ExerciseLibraryRepository { return &libraryRepo{s} }

func (r *libraryRepo) FindOrCreate(ctx context.Context, name, category string) (*domain.ExerciseLibraryEntry, error) {
	key := domain.LibraryKey(name)
	if key == "" {
		return nil, repository.RepositoryError("exercise name is required")
	}
	if category == "" {
		category = domain.DefaultLibraryCategory
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id, ok := r.s.libraryByKey[key]; ok {
		e := r.s.library[id]
		return &e, nil
	}
	e := domain.ExerciseLibraryEntry{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameKey:   key,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	r.s.library[e.ID] = e
	r.s.libraryByKey[key] = e.ID
	record(ctx, func() {
		delete(r.s.library, e.ID)
		delete(r.s.libraryByKey, key)
	})
	return &e, nil
}

func (r *libraryRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ExerciseLibraryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.library[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

// --- Generation logs ---

type logRepo struct{ s *Store }

func (s *Store) GenerationLogs() repository.GenerationLogRepository { return &logRepo{s} }

func (r *logRepo) Create(_ context.Context, l *domain.GenerationLog) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = primitive.NewObjectID()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	r.s.logs = append(r.s.logs, *l)
	return l.ID, nil
}

func (r *logRepo) ListByUser(_ context.Context, userID string, limit int64) ([]domain.GenerationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.GenerationLog{}
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		if r.s.logs[i].UserID == userID {
			out = append(out, r.s.logs[i])
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

// --- Progress subsystem reads ---

type checkInRepo struct{ s *Store }

func (s *Store) CheckIns() repository.CheckInRepository { return &checkInRepo{s} }

func (r *checkInRepo) ListByUser(_ context.Context, userID string, limit int64) ([]domain.CheckIn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.CheckIn{}
	for _, c := range r.s.checkIns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type workoutLogRepo struct{ s *Store }

func (s *Store) WorkoutLogs() repository.WorkoutLogRepository { return &workoutLogRepo{s} }

func (r *workoutLogRepo) CountCompletedByUser(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.workoutLogs[userID], nil
}
