package metrics

import "github.com/prometheus/client_golang/prometheus"

// Migration outcomes.
const (
	MigrationMerged  = "merged"
	MigrationNoop    = "noop"
	MigrationFailure = "failure"
)

// WishlistMetrics tracks merge activity, auth rejections and best-effort
// activity logging failures.
type WishlistMetrics struct {
	migrations    *prometheus.CounterVec
	itemsMigrated prometheus.Counter
	authFailures  *prometheus.CounterVec
	activityFails *prometheus.CounterVec
	rateLimited   prometheus.Counter
}

// NewWishlistMetrics registers the wishlist metrics on the provided registerer.
func NewWishlistMetrics(reg prometheus.Registerer) *WishlistMetrics {
	if reg == nil {
		return &WishlistMetrics{}
	}
	m := &WishlistMetrics{
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wishlist_migrations_total",
			Help: "Guest to customer wishlist migrations by outcome.",
		}, []string{"outcome"}),
		itemsMigrated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wishlist_items_migrated_total",
			Help: "Items inserted into customer wishlists by migrations.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wishlist_auth_failures_total",
			Help: "Rejected proxy signatures and session tokens by reason.",
		}, []string{"reason"}),
		activityFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wishlist_activity_log_failures_total",
			Help: "Activity events that could not be recorded.",
		}, []string{"type"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wishlist_rate_limited_total",
			Help: "Proxy requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(m.migrations, m.itemsMigrated, m.authFailures, m.activityFails, m.rateLimited)
	return m
}

// ObserveMigration records a migration outcome and the number of inserted items.
func (m *WishlistMetrics) ObserveMigration(outcome string, migrated int) {
	if m == nil || m.migrations == nil {
		return
	}
	m.migrations.WithLabelValues(normalizeLabel(outcome)).Inc()
	if migrated > 0 {
		m.itemsMigrated.Add(float64(migrated))
	}
}

// IncAuthFailure counts a rejected signature or token.
func (m *WishlistMetrics) IncAuthFailure(reason string) {
	if m == nil || m.authFailures == nil {
		return
	}
	m.authFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncActivityFailure counts an event that could not be written.
func (m *WishlistMetrics) IncActivityFailure(eventType string) {
	if m == nil || m.activityFails == nil {
		return
	}
	m.activityFails.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncRateLimited counts a request rejected with 429.
func (m *WishlistMetrics) IncRateLimited() {
	if m == nil || m.rateLimited == nil {
		return
	}
	m.rateLimited.Inc()
}
