package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"channelmart/internal/domain"
	cartrepo "channelmart/internal/repository/cart"
	productrepo "channelmart/internal/repository/product"

	"go.uber.org/zap"
)

type cartRepo interface {
	Get(ctx context.Context, buyerID int64) (*domain.Cart, error)
	Save(ctx context.Context, buyerID int64, lines []domain.CartLine) (*domain.Cart, error)
	Delete(ctx context.Context, buyerID int64) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Service owns cart mutation. Mutations are serialized per buyer; distinct
// buyers never contend.
type Service struct {
	repo     cartRepo
	products productRepo
	logger   *zap.Logger

	mu      sync.Mutex
	buyerMu map[int64]*sync.Mutex
}

func New(repo cartrepo.Repository, products productrepo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		products: products,
		logger:   logger,
		buyerMu:  map[int64]*sync.Mutex{},
	}
}

func (s *Service) lockBuyer(buyerID int64) func() {
	s.mu.Lock()
	m, ok := s.buyerMu[buyerID]
	if !ok {
		m = &sync.Mutex{}
		s.buyerMu[buyerID] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Add puts quantity units of a product into the buyer's cart, merging into
// an existing line for the same product. The product must be available and
// priced for the requested kind.
func (s *Service) Add(ctx context.Context, buyerID int64, productID string, quantity int, kind domain.PriceKind) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid price kind %q", kind)
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Available {
		return nil, domain.ErrNotFound
	}
	price := p.Price(kind)
	if price == nil || *price <= 0 {
		return nil, domain.ErrNoPrice
	}

	unlock := s.lockBuyer(buyerID)
	defer unlock()

	lines, err := s.currentLines(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += quantity
			lines[i].UnitPrice = *price
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, domain.CartLine{
			ProductID: productID,
			Name:      p.Name,
			Quantity:  quantity,
			UnitPrice: *price,
		})
	}

	return s.repo.Save(ctx, buyerID, lines)
}

// Remove drops the product's line entirely.
func (s *Service) Remove(ctx context.Context, buyerID int64, productID string) (*domain.Cart, error) {
	unlock := s.lockBuyer(buyerID)
	defer unlock()

	lines, err := s.currentLines(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	kept := lines[:0]
	for _, l := range lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	return s.repo.Save(ctx, buyerID, kept)
}

// Clear deletes the buyer's cart.
func (s *Service) Clear(ctx context.Context, buyerID int64) error {
	unlock := s.lockBuyer(buyerID)
	defer unlock()
	return s.repo.Delete(ctx, buyerID)
}

// Items returns the buyer's cart; a buyer with no cart gets an empty one.
func (s *Service) Items(ctx context.Context, buyerID int64) (*domain.Cart, error) {
	c, err := s.repo.Get(ctx, buyerID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Cart{BuyerID: buyerID, Lines: []domain.CartLine{}}, nil
	}
	return c, err
}

// Total sums the cart in whole currency units.
func (s *Service) Total(ctx context.Context, buyerID int64) (int64, error) {
	c, err := s.Items(ctx, buyerID)
	if err != nil {
		return 0, err
	}
	return c.Total(), nil
}

// Count sums item quantities across lines.
func (s *Service) Count(ctx context.Context, buyerID int64) (int, error) {
	c, err := s.Items(ctx, buyerID)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func (s *Service) currentLines(ctx context.Context, buyerID int64) ([]domain.CartLine, error) {
	c, err := s.repo.Get(ctx, buyerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.Lines, nil
}
