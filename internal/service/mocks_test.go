package service

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/lock"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// memStore is an in-memory backend for all repositories. Transactions
// snapshot the whole store and restore it when fn fails.
type memStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
	carts    map[uuid.UUID]domain.Cart
	reviews  map[uuid.UUID]domain.Review

	saveCartErr     error
	updateRatingErr error
	saveCalls       int
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]domain.Product),
		carts:    make(map[uuid.UUID]domain.Cart),
		reviews:  make(map[uuid.UUID]domain.Review),
	}
}

func (s *memStore) addProduct(price string, stock int) *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := domain.Product{
		ID:       uuid.New(),
		Name:     "Product " + price,
		Price:    decimal.RequireFromString(price),
		Category: domain.CategoryOther,
		Stock:    stock,
		Images:   []string{},
	}
	s.products[p.ID] = p
	return &p
}

func (s *memStore) setPrice(id uuid.UUID, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Price = decimal.RequireFromString(price)
	s.products[id] = p
}

func (s *memStore) deleteProduct(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

func (s *memStore) product(id uuid.UUID) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) storedCart(userID uuid.UUID) (domain.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	return copyCart(c), ok
}

func (s *memStore) reviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

func copyCart(c domain.Cart) domain.Cart {
	items := make([]domain.CartItem, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}

type memTransactor struct{ s *memStore }

type memTxKey struct{}

func (t memTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	t.s.mu.Lock()
	products := make(map[uuid.UUID]domain.Product, len(t.s.products))
	for k, v := range t.s.products {
		products[k] = v
	}
	carts := make(map[uuid.UUID]domain.Cart, len(t.s.carts))
	for k, v := range t.s.carts {
		carts[k] = copyCart(v)
	}
	reviews := make(map[uuid.UUID]domain.Review, len(t.s.reviews))
	for k, v := range t.s.reviews {
		reviews[k] = v
	}
	t.s.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.s.mu.Lock()
		t.s.products, t.s.carts, t.s.reviews = products, carts, reviews
		t.s.mu.Unlock()
		return err
	}
	return nil
}

type memProductRepo struct{ s *memStore }

func (r memProductRepo) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = *p
	return nil
}

func (r memProductRepo) Update(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.products[p.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	updated := *p
	updated.Rating = stored.Rating
	updated.NumReviews = stored.NumReviews
	r.s.products[p.ID] = updated
	return nil
}

func (r memProductRepo) UpdateRating(_ context.Context, a domain.RatingAggregate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.updateRatingErr != nil {
		return r.s.updateRatingErr
	}
	p, ok := r.s.products[a.ProductID]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Rating = a.Rating
	p.NumReviews = a.NumReviews
	r.s.products[a.ProductID] = p
	return nil
}

func (r memProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.s.products, id)
	for reviewID, review := range r.s.reviews {
		if review.ProductID == id {
			delete(r.s.reviews, reviewID)
		}
	}
	return nil
}

func (r memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (r memProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			p := p
			out[id] = &p
		}
	}
	return out, nil
}

func (r memProductRepo) ListFeatured(_ context.Context, limit int) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range r.s.products {
		if p.IsFeatured && len(out) < limit {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

type memCartRepo struct{ s *memStore }

func (r memCartRepo) FindByUser(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[userID]
	if !ok {
		return nil, nil
	}
	c = copyCart(c)
	return &c, nil
}

func (r memCartRepo) Save(_ context.Context, cart *domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.saveCalls++
	if r.s.saveCartErr != nil {
		return r.s.saveCartErr
	}
	stored, ok := r.s.carts[cart.UserID]
	if (!ok && cart.Version != 0) || (ok && stored.Version != cart.Version) {
		return repository.ErrCartVersionConflict
	}
	cart.Version++
	r.s.carts[cart.UserID] = copyCart(*cart)
	return nil
}

type memReviewRepo struct{ s *memStore }

func (r memReviewRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	return &rv, nil
}

func (r memReviewRepo) FindByProductAndUser(_ context.Context, productID, userID uuid.UUID) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.ProductID == productID && rv.UserID == userID {
			rv := rv
			return &rv, nil
		}
	}
	return nil, nil
}

func (r memReviewRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Review{}
	for _, rv := range r.s.reviews {
		if rv.ProductID == productID {
			rv := rv
			out = append(out, &rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memReviewRepo) Create(_ context.Context, review *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.ProductID == review.ProductID && rv.UserID == review.UserID {
			return repository.ErrReviewAlreadyExists
		}
	}
	r.s.reviews[review.ID] = *review
	return nil
}

func (r memReviewRepo) Update(_ context.Context, review *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[review.ID]; !ok {
		return repository.ErrReviewNotFound
	}
	r.s.reviews[review.ID] = *review
	return nil
}

func (r memReviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(r.s.reviews, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTestCartService(s *memStore) CartService {
	return NewCartService(
		memProductRepo{s},
		memCartRepo{s},
		memTransactor{s},
		lock.NewLocalLocker(lock.Options{}),
		nil,
		zap.NewNop(),
	)
}

func newTestReviewService(s *memStore, publisher events.Publisher) ReviewService {
	return NewReviewService(
		memProductRepo{s},
		memReviewRepo{s},
		memTransactor{s},
		lock.NewLocalLocker(lock.Options{}),
		publisher,
		nil,
		zap.NewNop(),
	)
}
