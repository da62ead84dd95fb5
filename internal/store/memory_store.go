package store

import (
	"context"
	"strings"
	"sync"

	"catalog-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryOwnerStore хранит владельцев в памяти процесса.
// Используется в тестах и при store.driver: memory.
type MemoryOwnerStore[T domain.Owner] struct {
	mu      sync.RWMutex
	records map[primitive.ObjectID]T
	order   []primitive.ObjectID // порядок вставки для постраничной выборки
	clone   func(T) T
}

// NewMemoryOwnerStore создает пустое хранилище. clone должен возвращать глубокую копию,
// чтобы записи нельзя было изменить извне через указатель.
func NewMemoryOwnerStore[T domain.Owner](clone func(T) T) *MemoryOwnerStore[T] {
	return &MemoryOwnerStore[T]{
		records: make(map[primitive.ObjectID]T),
		clone:   clone,
	}
}

func NewMemoryMovieStore() *MemoryOwnerStore[*domain.Movie] {
	return NewMemoryOwnerStore((*domain.Movie).Clone)
}

func NewMemorySeriesStore() *MemoryOwnerStore[*domain.Series] {
	return NewMemoryOwnerStore((*domain.Series).Clone)
}

func (m *MemoryOwnerStore[T]) FindByID(ctx context.Context, id primitive.ObjectID) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return m.clone(rec), nil
}

func (m *MemoryOwnerStore[T]) FindByImdbID(ctx context.Context, imdbID string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.byImdbID(imdbID); ok {
		return m.clone(rec), nil
	}
	var zero T
	return zero, ErrNotFound
}

func (m *MemoryOwnerStore[T]) ExistsByImdbID(ctx context.Context, imdbID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byImdbID(imdbID)
	return ok, nil
}

func (m *MemoryOwnerStore[T]) FindPage(ctx context.Context, params ListParams) ([]T, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := strings.ToLower(params.Title)
	var matched []T
	for _, id := range m.order {
		rec := m.records[id]
		if title != "" && !strings.Contains(strings.ToLower(rec.GetTitle()), title) {
			continue
		}
		matched = append(matched, rec)
	}

	total := int64(len(matched))
	start := params.Page * params.Size
	if start >= len(matched) {
		return []T{}, total, nil
	}
	end := min(start+params.Size, len(matched))

	out := make([]T, 0, end-start)
	for _, rec := range matched[start:end] {
		out = append(out, m.clone(rec))
	}
	return out, total, nil
}

func (m *MemoryOwnerStore[T]) Insert(ctx context.Context, record T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byImdbID(record.GetImdbID()); taken {
		return ErrDuplicateImdbID
	}
	if record.GetID().IsZero() {
		record.SetID(primitive.NewObjectID())
	}
	if record.GetReviewIDs() == nil {
		record.SetReviewIDs([]primitive.ObjectID{})
	}
	m.records[record.GetID()] = m.clone(record)
	m.order = append(m.order, record.GetID())
	return nil
}

func (m *MemoryOwnerStore[T]) Save(ctx context.Context, record T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.GetID()]; !ok {
		return ErrNotFound
	}
	if other, taken := m.byImdbID(record.GetImdbID()); taken && other.GetID() != record.GetID() {
		return ErrDuplicateImdbID
	}
	m.records[record.GetID()] = m.clone(record)
	return nil
}

func (m *MemoryOwnerStore[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryOwnerStore[T]) PushReview(ctx context.Context, imdbID string, reviewID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byImdbID(imdbID)
	if !ok {
		return ErrNotFound
	}
	rec.SetReviewIDs(append(rec.GetReviewIDs(), reviewID))
	return nil
}

func (m *MemoryOwnerStore[T]) PullReview(ctx context.Context, reviewID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var modified int64
	for _, rec := range m.records {
		ids := rec.GetReviewIDs()
		kept := ids[:0:0]
		for _, id := range ids {
			if id != reviewID {
				kept = append(kept, id)
			}
		}
		if len(kept) != len(ids) {
			rec.SetReviewIDs(kept)
			modified++
		}
	}
	return modified, nil
}

// byImdbID вызывается под m.mu.
func (m *MemoryOwnerStore[T]) byImdbID(imdbID string) (T, bool) {
	for _, rec := range m.records {
		if strings.EqualFold(rec.GetImdbID(), imdbID) {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// MemoryReviewStore хранит отзывы в памяти процесса.
type MemoryReviewStore struct {
	mu      sync.RWMutex
	reviews map[primitive.ObjectID]*domain.Review
	order   []primitive.ObjectID
}

func NewMemoryReviewStore() *MemoryReviewStore {
	return &MemoryReviewStore{reviews: make(map[primitive.ObjectID]*domain.Review)}
}

func (m *MemoryReviewStore) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryReviewStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make(map[primitive.ObjectID]*domain.Review, len(ids))
	for _, id := range ids {
		if r, ok := m.reviews[id]; ok {
			found[id] = r.Clone()
		}
	}
	return orderByIDs(ids, found), nil
}

func (m *MemoryReviewStore) FindAll(ctx context.Context) ([]*domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Review, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.reviews[id].Clone())
	}
	return out, nil
}

func (m *MemoryReviewStore) Insert(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	m.reviews[review.ID] = review.Clone()
	m.order = append(m.order, review.ID)
	return nil
}

func (m *MemoryReviewStore) Save(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[review.ID]; !ok {
		return ErrNotFound
	}
	m.reviews[review.ID] = review.Clone()
	return nil
}

func (m *MemoryReviewStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(m.reviews, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
