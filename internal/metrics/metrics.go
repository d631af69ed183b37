package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics хранит счётчики публичного доступа. nil *Metrics допустим, все методы тогда no-op.
type Metrics struct {
	CodeRequests        *prometheus.CounterVec
	VerificationResults *prometheus.CounterVec
	SessionsIssued      prometheus.Counter
	Lockouts            prometheus.Counter
	RecordAccess        *prometheus.CounterVec
	AccessLinksIssued   *prometheus.CounterVec
}

// New регистрирует счётчики в reg. Отдельный реестр нужен тестам, иначе повторная регистрация паникует.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CodeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_public_code_requests_total",
			Help: "Verification code requests by outcome",
		}, []string{"outcome"}),
		VerificationResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_public_verification_attempts_total",
			Help: "Verification code checks by outcome",
		}, []string{"outcome"}),
		SessionsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_public_sessions_issued_total",
			Help: "Session tokens issued after phone verification",
		}),
		Lockouts: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_public_lockouts_total",
			Help: "Verification attempts that exhausted the attempt ceiling",
		}),
		RecordAccess: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_public_record_access_total",
			Help: "Public read/update calls by operation and outcome",
		}, []string{"op", "outcome"}),
		AccessLinksIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_access_links_issued_total",
			Help: "Access links minted by staff, by purpose",
		}, []string{"purpose"}),
	}
}

func (m *Metrics) CodeRequested(outcome string) {
	if m == nil {
		return
	}
	m.CodeRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CodeChecked(outcome string) {
	if m == nil {
		return
	}
	m.VerificationResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionIssued() {
	if m == nil {
		return
	}
	m.SessionsIssued.Inc()
}

func (m *Metrics) LockedOut() {
	if m == nil {
		return
	}
	m.Lockouts.Inc()
}

func (m *Metrics) RecordAccessed(op, outcome string) {
	if m == nil {
		return
	}
	m.RecordAccess.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) AccessLinkIssued(purpose string) {
	if m == nil {
		return
	}
	m.AccessLinksIssued.WithLabelValues(purpose).Inc()
}
