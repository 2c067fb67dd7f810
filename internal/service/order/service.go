package order

import (
	"context"
	"errors"
	"fmt"

	"channelmart/internal/domain"
	"channelmart/internal/messaging"
	orderrepo "channelmart/internal/repository/order"
	productrepo "channelmart/internal/repository/product"

	"go.uber.org/zap"
)

// Callback payloads carried by prompt actions; the handler layer routes
// them back into Decide / SkipProof.
const (
	ActionApprove   = "ord:approve:"
	ActionReject    = "ord:reject:"
	ActionSkipProof = "ord:skipproof:"
)

type orderRepo interface {
	Create(ctx context.Context, in orderrepo.CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	SetDecisionMessageRef(ctx context.Context, id, ref string) error
	Decide(ctx context.Context, id string, moderatorID int64, to domain.OrderStatus) (*domain.Order, error)
	CompleteWithProof(ctx context.Context, id, photoRef string, proofText string) (*domain.Order, error)
	CompleteWithoutProof(ctx context.Context, id string) (*domain.Order, error)
	ListPending(ctx context.Context) ([]domain.Order, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type cartService interface {
	Items(ctx context.Context, buyerID int64) (*domain.Cart, error)
	Clear(ctx context.Context, buyerID int64) error
}

// Messenger is the slice of the chat transport the order engine needs.
type Messenger interface {
	SendPrompt(ctx context.Context, destination int64, text string, actions [][]messaging.Action) (string, error)
	DisableActions(ctx context.Context, ref string) error
	SendPhoto(ctx context.Context, destination int64, photoRef, caption string) error
}

// Config names the moderation recipients. The group destination is
// preferred; individual moderators are the fallback chain.
type Config struct {
	ModeratorGroupID int64
	ModeratorIDs     []int64
}

// Service drives the pending -> approved/rejected -> completed state
// machine. Status transitions are atomic conditional updates in the
// repository; notifications are best-effort and never roll a transition
// back.
type Service struct {
	orders   orderRepo
	products productRepo
	carts    cartService
	msgr     Messenger
	cfg      Config
	logger   *zap.Logger
}

func New(orders orderrepo.Repository, products productrepo.Repository, carts cartService, msgr Messenger, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orders: orders, products: products, carts: carts, msgr: msgr, cfg: cfg, logger: logger}
}

// CreateInput describes one buyer request for one product line.
type CreateInput struct {
	BuyerID       int64
	BuyerUsername string
	ProductID     string
	Quantity      int
	Kind          domain.PriceKind
}

// Create snapshots the product's name and price, persists a pending order
// and fans the moderation prompt out. The snapshot never changes when the
// catalog does.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if in.Quantity <= 0 {
		in.Quantity = 1
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("invalid order kind %q", in.Kind)
	}

	p, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.Available {
		return nil, domain.ErrNotFound
	}
	price := p.Price(in.Kind)
	if price == nil || *price <= 0 {
		return nil, domain.ErrNoPrice
	}

	o, err := s.orders.Create(ctx, orderrepo.CreateInput{
		BuyerID:       in.BuyerID,
		BuyerUsername: in.BuyerUsername,
		ProductID:     p.ID,
		ProductName:   snapshotName(p),
		Quantity:      in.Quantity,
		UnitPrice:     *price,
		TotalPrice:    *price * int64(in.Quantity),
		Kind:          in.Kind,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.sendDecisionPrompt(ctx, o, p.IsUsed)
	return o, nil
}

// CreateFromCart creates one order per cart line, skipping lines whose
// product vanished or lost its price, then clears the cart. Returns the
// orders that were actually created.
func (s *Service) CreateFromCart(ctx context.Context, buyerID int64, buyerUsername string, kind domain.PriceKind) ([]*domain.Order, error) {
	cart, err := s.carts.Items(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	var created []*domain.Order
	for _, line := range cart.Lines {
		o, err := s.Create(ctx, CreateInput{
			BuyerID:       buyerID,
			BuyerUsername: buyerUsername,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			Kind:          kind,
		})
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNoPrice) {
				s.logger.Info("skipping unorderable cart line",
					zap.Int64("buyer_id", buyerID),
					zap.String("product_id", line.ProductID),
					zap.Error(err),
				)
				continue
			}
			return created, err
		}
		created = append(created, o)
	}

	if len(created) > 0 {
		if err := s.carts.Clear(ctx, buyerID); err != nil {
			s.logger.Warn("clear cart after checkout", zap.Int64("buyer_id", buyerID), zap.Error(err))
		}
	}
	return created, nil
}

// Decide moves a pending order to approved or rejected. Under concurrent
// attempts the first caller wins; later callers get ErrAlreadyDecided and
// cause no second notification.
func (s *Service) Decide(ctx context.Context, orderID string, moderatorID int64, approve bool) (*domain.Order, error) {
	to := domain.OrderRejected
	if approve {
		to = domain.OrderApproved
	}

	o, err := s.orders.Decide(ctx, orderID, moderatorID, to)
	if err != nil {
		return nil, err
	}

	s.disablePrompt(ctx, o)

	if !approve {
		s.notifyBuyer(ctx, o, false, "", "")
		return o, nil
	}

	s.sendProofPrompt(ctx, o)
	return o, nil
}

// AttachProof records the proof photo for an approved order and completes
// it. A second attempt after proof exists is rejected, not reapplied.
func (s *Service) AttachProof(ctx context.Context, orderID, photoRef, proofText string) (*domain.Order, error) {
	if photoRef == "" {
		return nil, errors.New("photo reference required")
	}

	o, err := s.orders.CompleteWithProof(ctx, orderID, photoRef, proofText)
	if err != nil {
		return nil, err
	}

	s.disablePrompt(ctx, o)
	s.notifyBuyer(ctx, o, true, photoRef, proofText)
	return o, nil
}

// SkipProof completes an approved order without proof content.
func (s *Service) SkipProof(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.orders.CompleteWithoutProof(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.disablePrompt(ctx, o)
	s.notifyBuyer(ctx, o, true, "", "")
	return o, nil
}

func (s *Service) ListPending(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListPending(ctx)
}

// sendDecisionPrompt fans the moderation prompt out: the group destination
// first, then each configured moderator until one delivery succeeds. The
// delivered message's reference is stored so its controls can be disabled
// once a decision lands.
func (s *Service) sendDecisionPrompt(ctx context.Context, o *domain.Order, isUsed bool) {
	label := o.ProductName
	if isUsed {
		label += " (Б/У)"
	}
	username := ""
	if o.BuyerUsername != "" {
		username = " @" + o.BuyerUsername
	}
	text := fmt.Sprintf(
		"🆕 Заказ #%s\nПокупатель: %d%s\nТовар: %s\nКоличество: %d\nЦена: %d ₽\nИтого: %d ₽",
		o.ID, o.BuyerID, username, label, o.Quantity, o.UnitPrice, o.TotalPrice,
	)
	actions := [][]messaging.Action{{
		{Label: "✅ Подтвердить", Data: ActionApprove + o.ID},
		{Label: "❌ Отклонить", Data: ActionReject + o.ID},
	}}

	ref := ""
	if s.cfg.ModeratorGroupID != 0 {
		r, err := s.msgr.SendPrompt(ctx, s.cfg.ModeratorGroupID, text, actions)
		if err != nil {
			s.logger.Warn("moderator group delivery failed",
				zap.String("order_id", o.ID), zap.Error(err))
		} else {
			ref = r
		}
	}
	if ref == "" {
		for _, mid := range s.cfg.ModeratorIDs {
			r, err := s.msgr.SendPrompt(ctx, mid, text, actions)
			if err != nil {
				s.logger.Warn("moderator delivery failed",
					zap.String("order_id", o.ID), zap.Int64("moderator_id", mid), zap.Error(err))
				continue
			}
			ref = r
			break
		}
	}
	if ref == "" {
		s.logger.Error("no moderator reachable for order", zap.String("order_id", o.ID))
		return
	}

	if err := s.orders.SetDecisionMessageRef(ctx, o.ID, ref); err != nil {
		s.logger.Warn("store decision message ref", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// sendProofPrompt asks for a proof photo after approval. Its reference
// replaces the decision prompt's, keeping a single actionable prompt per
// order.
func (s *Service) sendProofPrompt(ctx context.Context, o *domain.Order) {
	dest := s.cfg.ModeratorGroupID
	if dest == 0 && o.ModeratorID != nil {
		dest = *o.ModeratorID
	}
	if dest == 0 {
		return
	}

	text := fmt.Sprintf(
		"✅ Заказ #%s подтверждён.\nПришлите фото коробки/серийника в ответ, или нажмите кнопку, если фото не требуется.",
		o.ID,
	)
	actions := [][]messaging.Action{{
		{Label: "Фото не требуется", Data: ActionSkipProof + o.ID},
	}}

	ref, err := s.msgr.SendPrompt(ctx, dest, text, actions)
	if err != nil {
		s.logger.Warn("proof prompt delivery failed", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	if err := s.orders.SetDecisionMessageRef(ctx, o.ID, ref); err != nil {
		s.logger.Warn("store proof prompt ref", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (s *Service) disablePrompt(ctx context.Context, o *domain.Order) {
	if o.DecisionMessageRef == nil || *o.DecisionMessageRef == "" {
		return
	}
	if err := s.msgr.DisableActions(ctx, *o.DecisionMessageRef); err != nil {
		s.logger.Warn("disable prompt actions", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// notifyBuyer is best-effort: a failed delivery is logged, never rolled
// back into the order's state.
func (s *Service) notifyBuyer(ctx context.Context, o *domain.Order, approved bool, photoRef, proofText string) {
	var text string
	if approved {
		text = fmt.Sprintf(
			"✅ Ваш заказ подтверждён!\nТовар: %s\nКоличество: %d\nИтого: %d ₽",
			o.ProductName, o.Quantity, o.TotalPrice,
		)
	} else {
		text = fmt.Sprintf(
			"❌ Ваш заказ отклонён.\nТовар: %s\nКоличество: %d",
			o.ProductName, o.Quantity,
		)
	}

	if _, err := s.msgr.SendPrompt(ctx, o.BuyerID, text, nil); err != nil {
		s.logger.Warn("buyer notification failed",
			zap.String("order_id", o.ID), zap.Int64("buyer_id", o.BuyerID), zap.Error(err))
		return
	}

	if approved && photoRef != "" {
		if err := s.msgr.SendPhoto(ctx, o.BuyerID, photoRef, "Фото коробки / серийника"); err != nil {
			s.logger.Warn("proof photo delivery failed",
				zap.String("order_id", o.ID), zap.Error(err))
		}
		if proofText != "" {
			if _, err := s.msgr.SendPrompt(ctx, o.BuyerID, "Серийный номер: "+proofText, nil); err != nil {
				s.logger.Warn("serial text delivery failed",
					zap.String("order_id", o.ID), zap.Error(err))
			}
		}
	}
}

func snapshotName(p *domain.Product) string {
	name := p.Name
	if flag := p.ExtraAttrs["flag"]; flag != "" {
		name += " " + flag
	}
	return name
}
