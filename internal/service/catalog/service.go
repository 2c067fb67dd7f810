package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channelmart/internal/domain"
	"channelmart/internal/messaging"
	"channelmart/internal/pricelist"
	productrepo "channelmart/internal/repository/product"
	sourcerepo "channelmart/internal/repository/source"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	maxNameLen        = 400
	maxFetchRetries   = 3
	rateLimitMargin   = 500 * time.Millisecond
	progressInterval  = 2500 * time.Millisecond
	initialFetchDelay = 500 * time.Millisecond
)

// Messenger is the slice of the chat transport the catalog needs.
type Messenger interface {
	FetchPostText(ctx context.Context, channelID int64, postID int) (string, error)
}

type productRepo interface {
	ReplacePost(ctx context.Context, in productrepo.ReplacePostInput) (productrepo.ReplaceStats, error)
	ListAvailable(ctx context.Context, channelID int64, postIDs []int, isUsed bool) ([]domain.Product, error)
}

type sourceRepo interface {
	ListActive(ctx context.Context, channelID int64) ([]domain.MonitoredSource, error)
}

// Service keeps stored products in sync with their source posts.
type Service struct {
	products productRepo
	sources  sourceRepo
	msgr     Messenger
	logger   *zap.Logger
}

func New(products productrepo.Repository, sources sourcerepo.Repository, msgr Messenger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{products: products, sources: sources, msgr: msgr, logger: logger}
}

// ReconcileInput identifies one post and its current full text.
type ReconcileInput struct {
	ChannelID int64
	PostID    int
	Category  string
	RawText   string
	IsUsed    bool
	Kind      domain.PriceKind
}

// Reconcile parses the post text and applies inserts, updates and soft
// deactivations so stored state exactly reflects the latest parse. The
// write-set executes atomically; malformed lines are skipped silently.
func (s *Service) Reconcile(ctx context.Context, in ReconcileInput) (productrepo.ReplaceStats, error) {
	if !in.Kind.Valid() {
		return productrepo.ReplaceStats{}, fmt.Errorf("reconcile: invalid price kind %q", in.Kind)
	}

	items := pricelist.Parse(in.RawText)
	rows := make([]productrepo.Row, 0, len(items))
	for i, it := range items {
		attrs := map[string]string{}
		if in.IsUsed {
			for k, v := range pricelist.UsedAttrs(it.Name) {
				attrs[k] = v
			}
		}
		if it.Flag != "" {
			attrs["flag"] = it.Flag
		}
		rows = append(rows, productrepo.Row{
			Name:       truncate(it.Name, maxNameLen),
			Key:        pricelist.NormalizeKey(it.Name, it.Flag),
			Price:      it.Price,
			OrderIndex: i + 1,
			ExtraAttrs: attrs,
		})
	}

	stats, err := s.products.ReplacePost(ctx, productrepo.ReplacePostInput{
		ChannelID: in.ChannelID,
		PostID:    in.PostID,
		Category:  in.Category,
		IsUsed:    in.IsUsed,
		Kind:      in.Kind,
		Rows:      rows,
	})
	if err != nil {
		return stats, fmt.Errorf("reconcile post %d/%d: %w", in.ChannelID, in.PostID, err)
	}
	return stats, nil
}

// ListAvailable returns available products for a channel and condition,
// optionally narrowed to specific posts.
func (s *Service) ListAvailable(ctx context.Context, channelID int64, postIDs []int, isUsed bool) ([]domain.Product, error) {
	return s.products.ListAvailable(ctx, channelID, postIDs, isUsed)
}

// RescanAll re-reads every active monitored source sequentially and
// reconciles each one. Per-source failures are counted, never fatal; the
// result is a summary, not a per-post error list. The progress callback,
// when non-nil, fires at most every progressInterval.
func (s *Service) RescanAll(ctx context.Context, channelID int64, progress func(done, total, ok, fail int)) (ok, fail int, err error) {
	sources, err := s.sources.ListActive(ctx, channelID)
	if err != nil {
		return 0, 0, fmt.Errorf("list sources: %w", err)
	}

	total := len(sources)
	lastProgress := time.Now()

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return ok, fail, err
		}

		if err := s.rescanOne(ctx, src); err != nil {
			fail++
			s.logger.Warn("rescan source failed",
				zap.Int64("channel_id", src.ChannelID),
				zap.Int("post_id", src.PostID),
				zap.Error(err),
			)
		} else {
			ok++
		}

		if progress != nil && time.Since(lastProgress) >= progressInterval {
			progress(i+1, total, ok, fail)
			lastProgress = time.Now()
		}
	}

	s.logger.Info("rescan finished", zap.Int("ok", ok), zap.Int("fail", fail))
	return ok, fail, nil
}

func (s *Service) rescanOne(ctx context.Context, src domain.MonitoredSource) error {
	text, err := s.fetchWithRetry(ctx, src.ChannelID, src.PostID)
	if err != nil {
		return fmt.Errorf("fetch post text: %w", err)
	}
	_, err = s.Reconcile(ctx, ReconcileInput{
		ChannelID: src.ChannelID,
		PostID:    src.PostID,
		Category:  src.Category,
		RawText:   text,
		IsUsed:    src.IsUsed,
		Kind:      src.PriceKind,
	})
	return err
}

// fetchWithRetry retries transient fetch errors with exponential backoff.
// A rate-limit signal is honored by sleeping for the suggested duration
// plus a margin before the next attempt.
func (s *Service) fetchWithRetry(ctx context.Context, channelID int64, postID int) (string, error) {
	var text string

	op := func() error {
		var err error
		text, err = s.msgr.FetchPostText(ctx, channelID, postID)
		if err == nil {
			return nil
		}
		var rl *messaging.RateLimitError
		if errors.As(err, &rl) {
			select {
			case <-time.After(rl.RetryAfter + rateLimitMargin):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialFetchDelay
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxFetchRetries), ctx)); err != nil {
		return "", err
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
