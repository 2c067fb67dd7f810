package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"channelmart/internal/domain"
	"channelmart/internal/messaging"
	productrepo "channelmart/internal/repository/product"

	"go.uber.org/zap"
)

type stubProductRepo struct {
	lastInput productrepo.ReplacePostInput
	stats     productrepo.ReplaceStats
	err       error
	calls     int
}

func (s *stubProductRepo) ReplacePost(_ context.Context, in productrepo.ReplacePostInput) (productrepo.ReplaceStats, error) {
	s.lastInput = in
	s.calls++
	return s.stats, s.err
}

func (s *stubProductRepo) ListAvailable(_ context.Context, _ int64, _ []int, _ bool) ([]domain.Product, error) {
	return nil, nil
}

type stubSourceRepo struct {
	sources []domain.MonitoredSource
	err     error
}

func (s *stubSourceRepo) ListActive(_ context.Context, _ int64) ([]domain.MonitoredSource, error) {
	return s.sources, s.err
}

type stubMessenger struct {
	texts map[int]string
	errs  map[int][]error
	calls int
}

func (s *stubMessenger) FetchPostText(_ context.Context, _ int64, postID int) (string, error) {
	s.calls++
	if queue := s.errs[postID]; len(queue) > 0 {
		err := queue[0]
		s.errs[postID] = queue[1:]
		return "", err
	}
	return s.texts[postID], nil
}

func newTestService(products productRepo, sources sourceRepo, msgr Messenger) *Service {
	return &Service{products: products, sources: sources, msgr: msgr, logger: zap.NewNop()}
}

func TestReconcileBuildsRows(t *testing.T) {
	repo := &stubProductRepo{}
	svc := newTestService(repo, &stubSourceRepo{}, &stubMessenger{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		ChannelID: -100,
		PostID:    7,
		Category:  "phones",
		RawText:   "iPhone 15 - 49900\niPhone 15 Pro - 95000 \U0001F1FA\U0001F1F8",
		Kind:      domain.PriceWholesale,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := repo.lastInput
	if in.ChannelID != -100 || in.PostID != 7 || in.Category != "phones" || in.Kind != domain.PriceWholesale {
		t.Fatalf("post identity not forwarded: %+v", in)
	}
	if len(in.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(in.Rows))
	}
	if in.Rows[0].Key != "iphone 15" || in.Rows[0].Price != 49900 || in.Rows[0].OrderIndex != 1 {
		t.Fatalf("unexpected first row: %+v", in.Rows[0])
	}
	if in.Rows[1].Key != "iphone 15 pro|\U0001F1FA\U0001F1F8" {
		t.Fatalf("flag not folded into key: %q", in.Rows[1].Key)
	}
	if in.Rows[1].ExtraAttrs["flag"] != "\U0001F1FA\U0001F1F8" {
		t.Fatalf("flag attr missing: %+v", in.Rows[1].ExtraAttrs)
	}
	if in.Rows[1].OrderIndex != 2 {
		t.Fatalf("order index not sequential: %d", in.Rows[1].OrderIndex)
	}
}

func TestReconcileUsedAttrs(t *testing.T) {
	repo := &stubProductRepo{}
	svc := newTestService(repo, &stubSourceRepo{}, &stubMessenger{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		ChannelID: -100,
		PostID:    8,
		RawText:   "iPhone 13, 1 год, полный комплект - 30000",
		IsUsed:    true,
		Kind:      domain.PriceRetail,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.lastInput.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(repo.lastInput.Rows))
	}
	attrs := repo.lastInput.Rows[0].ExtraAttrs
	if attrs["usage_hint"] != "1 год" || attrs["kit"] != "full" {
		t.Fatalf("used attrs not extracted: %+v", attrs)
	}
}

func TestReconcileEmptyParseStillWrites(t *testing.T) {
	repo := &stubProductRepo{}
	svc := newTestService(repo, &stubSourceRepo{}, &stubMessenger{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		ChannelID: -100,
		PostID:    9,
		RawText:   "ничего не продаем",
		Kind:      domain.PriceRetail,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("expected ReplacePost to run once, got %d calls", repo.calls)
	}
	if len(repo.lastInput.Rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(repo.lastInput.Rows))
	}
}

func TestReconcileInvalidKind(t *testing.T) {
	repo := &stubProductRepo{}
	svc := newTestService(repo, &stubSourceRepo{}, &stubMessenger{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{Kind: "bogus"})
	if err == nil {
		t.Fatal("expected error for invalid kind")
	}
	if repo.calls != 0 {
		t.Fatal("repo must not be touched on invalid kind")
	}
}

func TestRescanAllCountsPerSource(t *testing.T) {
	repo := &stubProductRepo{}
	sources := &stubSourceRepo{sources: []domain.MonitoredSource{
		{ChannelID: -100, PostID: 1, PriceKind: domain.PriceWholesale},
		{ChannelID: -100, PostID: 2, PriceKind: "bogus"},
		{ChannelID: -100, PostID: 3, PriceKind: domain.PriceWholesale},
	}}
	msgr := &stubMessenger{texts: map[int]string{
		1: "iPhone 15 - 49900",
		2: "iPhone 15 - 49900",
		3: "AirPods - 17500",
	}}
	svc := newTestService(repo, sources, msgr)

	ok, fail, err := svc.RescanAll(context.Background(), -100, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok != 2 || fail != 1 {
		t.Fatalf("expected 2 ok / 1 fail, got %d / %d", ok, fail)
	}
	if repo.calls != 2 {
		t.Fatalf("expected 2 reconciliations, got %d", repo.calls)
	}
}

func TestRescanAllSourceListError(t *testing.T) {
	svc := newTestService(&stubProductRepo{}, &stubSourceRepo{err: errors.New("db down")}, &stubMessenger{})
	if _, _, err := svc.RescanAll(context.Background(), 0, nil); err == nil {
		t.Fatal("expected error when source listing fails")
	}
}

func TestRescanAllHonorsCancel(t *testing.T) {
	sources := &stubSourceRepo{sources: []domain.MonitoredSource{
		{ChannelID: -100, PostID: 1, PriceKind: domain.PriceWholesale},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestService(&stubProductRepo{}, sources, &stubMessenger{})
	_, _, err := svc.RescanAll(ctx, -100, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFetchWithRetryRecoversFromRateLimit(t *testing.T) {
	msgr := &stubMessenger{
		texts: map[int]string{5: "iPhone 15 - 49900"},
		errs: map[int][]error{
			5: {&messaging.RateLimitError{RetryAfter: time.Millisecond}},
		},
	}
	svc := newTestService(&stubProductRepo{}, &stubSourceRepo{}, msgr)

	text, err := svc.fetchWithRetry(context.Background(), -100, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "iPhone 15 - 49900" {
		t.Fatalf("unexpected text: %q", text)
	}
	if msgr.calls != 2 {
		t.Fatalf("expected 2 fetch attempts, got %d", msgr.calls)
	}
}

func TestFetchWithRetryGivesUp(t *testing.T) {
	boom := errors.New("flood")
	msgr := &stubMessenger{errs: map[int][]error{
		6: {boom, boom, boom, boom, boom, boom},
	}}
	svc := newTestService(&stubProductRepo{}, &stubSourceRepo{}, msgr)

	_, err := svc.fetchWithRetry(context.Background(), -100, 6)
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if msgr.calls != maxFetchRetries+1 {
		t.Fatalf("expected %d attempts, got %d", maxFetchRetries+1, msgr.calls)
	}
}
