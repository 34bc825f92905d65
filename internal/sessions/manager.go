// Package sessions bootstraps, validates and refreshes storefront sessions and
// records best-effort activity events.
package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-wishlist/internal/identity"
	"github.com/angelmondragon/storefront-wishlist/internal/repository"
	"github.com/angelmondragon/storefront-wishlist/pkg/auth"
	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/metrics"
)

// TokenIssuer is the token surface the manager needs.
type TokenIssuer interface {
	Issue(shop string, subjectID *string, now time.Time) (auth.IssuedToken, error)
	Verify(token string, now time.Time) (*auth.SessionClaims, error)
}

// ExternalCustomer is the upstream customer presented by the storefront.
type ExternalCustomer struct {
	ID    string
	Email *string
}

// CustomerSession is returned when a registered customer starts a session.
type CustomerSession struct {
	Customer  models.Customer
	Token     string
	ExpiresIn int
}

// GuestSession is returned when a guest starts a session.
type GuestSession struct {
	GuestKey  string
	Token     string
	ExpiresIn int
}

// Session is a verified token bound to the shop it was presented for.
type Session struct {
	Shop     string
	Identity identity.Identity
	Claims   *auth.SessionClaims
}

// ManagerParams groups dependencies for the session manager.
type ManagerParams struct {
	Repo    repository.Repository
	Tokens  TokenIssuer
	Logger  *logger.Logger
	Metrics *metrics.WishlistMetrics
	Clock   func() time.Time
}

// Manager owns the session lifecycle. It is safe for concurrent use.
type Manager struct {
	repo    repository.Repository
	tokens  TokenIssuer
	logg    *logger.Logger
	metrics *metrics.WishlistMetrics
	now     func() time.Time
}

// NewManager builds a session manager with the required dependencies.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session repository is required")
	}
	if params.Tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token service is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Manager{
		repo:    params.Repo,
		tokens:  params.Tokens,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     clock,
	}, nil
}

// CreateCustomerSession upserts the shop and customer and issues a registered
// token. Repeating the call for the same customer is harmless.
func (m *Manager) CreateCustomerSession(ctx context.Context, shop string, customer ExternalCustomer) (CustomerSession, error) {
	externalID := strings.TrimSpace(customer.ID)
	if externalID == "" {
		return CustomerSession{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if strings.HasPrefix(externalID, auth.GuestSubjectPrefix) {
		return CustomerSession{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id must not use the guest prefix")
	}

	shopRow, err := m.repo.UpsertShop(ctx, shop)
	if err != nil {
		return CustomerSession{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert shop")
	}
	row, err := m.repo.UpsertCustomer(ctx, shopRow.ID, externalID, customer.Email)
	if err != nil {
		return CustomerSession{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert customer")
	}

	issued, err := m.tokens.Issue(shop, &externalID, m.now())
	if err != nil {
		return CustomerSession{}, err
	}

	m.LogActivity(ctx, shop, externalID, models.EventTypeSession, map[string]any{
		"kind": string(identity.KindRegistered),
	})

	return CustomerSession{
		Customer:  *row,
		Token:     issued.Token,
		ExpiresIn: issued.ExpiresIn,
	}, nil
}

// CreateGuestSession issues a guest token, generating a fresh key when guestKey is empty.
func (m *Manager) CreateGuestSession(ctx context.Context, shop, guestKey string) (GuestSession, error) {
	if _, err := m.repo.UpsertShop(ctx, shop); err != nil {
		return GuestSession{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert shop")
	}

	key := strings.TrimSpace(guestKey)
	if key == "" {
		key = uuid.NewString()
	}
	subject := identity.Guest(key).Subject()

	issued, err := m.tokens.Issue(shop, subject, m.now())
	if err != nil {
		return GuestSession{}, err
	}

	m.LogActivity(ctx, shop, *subject, models.EventTypeSession, map[string]any{
		"kind":     string(identity.KindGuest),
		"guestKey": key,
	})

	return GuestSession{
		GuestKey:  key,
		Token:     issued.Token,
		ExpiresIn: issued.ExpiresIn,
	}, nil
}

// ValidateSession returns nil when the token is invalid, expired or was
// issued for a different shop.
func (m *Manager) ValidateSession(token, shop string) *Session {
	claims, err := m.tokens.Verify(token, m.now())
	if err != nil {
		return nil
	}
	if !strings.EqualFold(claims.Shop, shop) {
		m.metrics.IncAuthFailure("shop_mismatch")
		return nil
	}
	return &Session{
		Shop:     claims.Shop,
		Identity: identity.FromClaims(claims),
		Claims:   claims,
	}
}

// RefreshSession validates token and reissues it with a full window for the
// same subject. Returns nil on invalid input.
func (m *Manager) RefreshSession(token, shop string) *auth.IssuedToken {
	session := m.ValidateSession(token, shop)
	if session == nil {
		return nil
	}
	issued, err := m.Reissue(session)
	if err != nil {
		return nil
	}
	return &issued
}

// Reissue mints a fresh token for an already validated session.
func (m *Manager) Reissue(session *Session) (auth.IssuedToken, error) {
	if session == nil {
		return auth.IssuedToken{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session is required")
	}
	return m.tokens.Issue(session.Shop, session.Identity.Subject(), m.now())
}

// IssueFor mints a token for id without a previous session, e.g. after a migration.
func (m *Manager) IssueFor(shop string, id identity.Identity) (auth.IssuedToken, error) {
	return m.tokens.Issue(shop, id.Subject(), m.now())
}

// LogActivity appends an event. Failures are logged and counted, never returned.
func (m *Manager) LogActivity(ctx context.Context, shop, subjectID string, eventType models.EventType, payload map[string]any) {
	if err := m.appendEvent(ctx, shop, subjectID, eventType, payload); err != nil {
		m.metrics.IncActivityFailure(string(eventType))
		logCtx := m.logg.WithFields(ctx, map[string]any{
			"event_type": string(eventType),
			"shop":       shop,
		})
		m.logg.Warn(logCtx, "activity event dropped: "+err.Error())
	}
}

func (m *Manager) appendEvent(ctx context.Context, shop, subjectID string, eventType models.EventType, payload map[string]any) error {
	shopRow, err := m.repo.FindShopByDomain(ctx, shop)
	if err != nil {
		return err
	}

	event := &models.Event{
		ShopID:  shopRow.ID,
		Type:    eventType,
		Payload: payload,
	}

	id := identity.Resolve(subjectID)
	if id.IsRegistered() {
		customer, err := m.repo.FindCustomer(ctx, shopRow.ID, id.ExternalID())
		switch {
		case err == nil:
			event.CustomerID = &customer.ID
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}

	return m.repo.AppendEvent(ctx, event)
}
