package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"channelmart/internal/domain"

	"go.uber.org/zap"
)

type stubCartRepo struct {
	carts     map[int64]*domain.Cart
	getErr    error
	saveErr   error
	deleteErr error
	deleted   []int64
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{carts: map[int64]*domain.Cart{}}
}

func (s *stubCartRepo) Get(_ context.Context, buyerID int64) (*domain.Cart, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	c, ok := s.carts[buyerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *stubCartRepo) Save(_ context.Context, buyerID int64, lines []domain.CartLine) (*domain.Cart, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	c := &domain.Cart{BuyerID: buyerID, Lines: lines}
	s.carts[buyerID] = c
	return c, nil
}

func (s *stubCartRepo) Delete(_ context.Context, buyerID int64) error {
	s.deleted = append(s.deleted, buyerID)
	delete(s.carts, buyerID)
	return s.deleteErr
}

type stubProductRepo struct {
	products map[string]*domain.Product
}

func (s *stubProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func int64Ptr(v int64) *int64 { return &v }

func availableProduct(id string, wholesale int64) *domain.Product {
	return &domain.Product{
		ID:             id,
		Name:           "iPhone 15",
		Available:      true,
		PriceWholesale: int64Ptr(wholesale),
	}
}

func newTestService(repo cartRepo, products productRepo) *Service {
	return &Service{repo: repo, products: products, logger: zap.NewNop(), buyerMu: map[int64]*sync.Mutex{}}
}

func TestAddCreatesLine(t *testing.T) {
	repo := newStubCartRepo()
	svc := newTestService(repo, &stubProductRepo{products: map[string]*domain.Product{
		"p1": availableProduct("p1", 49900),
	}})

	c, err := svc.Add(context.Background(), 10, "p1", 2, domain.PriceWholesale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(c.Lines))
	}
	l := c.Lines[0]
	if l.ProductID != "p1" || l.Quantity != 2 || l.UnitPrice != 49900 || l.Name != "iPhone 15" {
		t.Fatalf("unexpected line: %+v", l)
	}
}

func TestAddMergesSameProduct(t *testing.T) {
	repo := newStubCartRepo()
	svc := newTestService(repo, &stubProductRepo{products: map[string]*domain.Product{
		"p1": availableProduct("p1", 49900),
	}})

	ctx := context.Background()
	if _, err := svc.Add(ctx, 10, "p1", 1, domain.PriceWholesale); err != nil {
		t.Fatalf("first add: %v", err)
	}
	c, err := svc.Add(ctx, 10, "p1", 3, domain.PriceWholesale)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(c.Lines) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(c.Lines))
	}
	if c.Lines[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", c.Lines[0].Quantity)
	}
}

func TestAddRefreshesUnitPriceOnMerge(t *testing.T) {
	repo := newStubCartRepo()
	products := &stubProductRepo{products: map[string]*domain.Product{
		"p1": availableProduct("p1", 49900),
	}}
	svc := newTestService(repo, products)

	ctx := context.Background()
	if _, err := svc.Add(ctx, 10, "p1", 1, domain.PriceWholesale); err != nil {
		t.Fatalf("first add: %v", err)
	}
	products.products["p1"].PriceWholesale = int64Ptr(47000)
	c, err := svc.Add(ctx, 10, "p1", 1, domain.PriceWholesale)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if c.Lines[0].UnitPrice != 47000 {
		t.Fatalf("expected refreshed price 47000, got %d", c.Lines[0].UnitPrice)
	}
}

func TestAddValidation(t *testing.T) {
	svc := newTestService(newStubCartRepo(), &stubProductRepo{products: map[string]*domain.Product{
		"p1": availableProduct("p1", 49900),
	}})

	ctx := context.Background()
	if _, err := svc.Add(ctx, 10, "p1", 0, domain.PriceWholesale); err == nil {
		t.Fatal("expected error for zero quantity")
	}
	if _, err := svc.Add(ctx, 10, "p1", 1, "bogus"); err == nil {
		t.Fatal("expected error for invalid kind")
	}
	if _, err := svc.Add(ctx, 10, "missing", 1, domain.PriceWholesale); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddUnavailableProduct(t *testing.T) {
	p := availableProduct("p1", 49900)
	p.Available = false
	svc := newTestService(newStubCartRepo(), &stubProductRepo{products: map[string]*domain.Product{"p1": p}})

	_, err := svc.Add(context.Background(), 10, "p1", 1, domain.PriceWholesale)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unavailable product, got %v", err)
	}
}

func TestAddMissingPrice(t *testing.T) {
	p := availableProduct("p1", 49900)
	p.PriceRetail = nil
	svc := newTestService(newStubCartRepo(), &stubProductRepo{products: map[string]*domain.Product{"p1": p}})

	_, err := svc.Add(context.Background(), 10, "p1", 1, domain.PriceRetail)
	if !errors.Is(err, domain.ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
}

func TestRemoveDropsLine(t *testing.T) {
	repo := newStubCartRepo()
	repo.carts[10] = &domain.Cart{BuyerID: 10, Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 1, UnitPrice: 100},
		{ProductID: "p2", Quantity: 2, UnitPrice: 200},
	}}
	svc := newTestService(repo, &stubProductRepo{})

	c, err := svc.Remove(context.Background(), 10, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Lines) != 1 || c.Lines[0].ProductID != "p2" {
		t.Fatalf("unexpected lines after remove: %+v", c.Lines)
	}
}

func TestClearDeletesCart(t *testing.T) {
	repo := newStubCartRepo()
	repo.carts[10] = &domain.Cart{BuyerID: 10}
	svc := newTestService(repo, &stubProductRepo{})

	if err := svc.Clear(context.Background(), 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 10 {
		t.Fatalf("delete not forwarded: %+v", repo.deleted)
	}
}

func TestItemsMissingCartIsEmpty(t *testing.T) {
	svc := newTestService(newStubCartRepo(), &stubProductRepo{})

	c, err := svc.Items(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.BuyerID != 10 || len(c.Lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", c)
	}
}

func TestTotalAndCount(t *testing.T) {
	repo := newStubCartRepo()
	repo.carts[10] = &domain.Cart{BuyerID: 10, Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2, UnitPrice: 100},
		{ProductID: "p2", Quantity: 1, UnitPrice: 250},
	}}
	svc := newTestService(repo, &stubProductRepo{})

	total, err := svc.Total(context.Background(), 10)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 450 {
		t.Fatalf("expected total 450, got %d", total)
	}

	count, err := svc.Count(context.Background(), 10)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
}
