package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/votegate/internal/model"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
)

type Recorder interface {
	RecordIssue(err error)
	RecordVerify(err error)
	RecordSubmit(err error)
}

type Collector struct {
	issued    *prometheus.CounterVec
	verified  *prometheus.CounterVec
	submitted *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "votegate_otp_issue_total",
			Help: "Code issuance attempts by outcome.",
		}, []string{"outcome"}),
		verified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "votegate_otp_verify_total",
			Help: "Code verification attempts by outcome.",
		}, []string{"outcome"}),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "votegate_submit_total",
			Help: "Submission attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(c.issued, c.verified, c.submitted)
	return c
}

func (c *Collector) RecordIssue(err error) {
	c.issued.WithLabelValues(Outcome(err)).Inc()
}

func (c *Collector) RecordVerify(err error) {
	c.verified.WithLabelValues(Outcome(err)).Inc()
}

func (c *Collector) RecordSubmit(err error) {
	c.submitted.WithLabelValues(Outcome(err)).Inc()
}

var outcomes = []struct {
	err   error
	label string
}{
	{appErr.ErrInvalidIdentity, "invalid_identity"},
	{appErr.ErrNotEligible, "not_eligible"},
	{appErr.ErrAlreadySubmitted, "already_submitted"},
	{appErr.ErrDeliveryFailed, "delivery_failed"},
	{appErr.ErrNoPendingRequest, "no_pending_request"},
	{appErr.ErrInvalidOrExpired, "invalid_or_expired"},
	{appErr.ErrNotAuthenticated, "not_authenticated"},
	{appErr.ErrIncompleteAnswers, "incomplete_answers"},
}

// Outcome maps an operation result onto a bounded label value.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "error"
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type StatsSource interface {
	Stats(ctx context.Context) (*model.Stats, error)
}

// StatsCollector reads ballot statistics from the store on every scrape.
type StatsCollector struct {
	source        StatsSource
	timeout       time.Duration
	identities    *prometheus.Desc
	submissions   *prometheus.Desc
	participation *prometheus.Desc
}

func NewStatsCollector(source StatsSource, timeout time.Duration) *StatsCollector {
	return &StatsCollector{
		source:        source,
		timeout:       timeout,
		identities:    prometheus.NewDesc("votegate_identities", "Identities on the roster.", nil, nil),
		submissions:   prometheus.NewDesc("votegate_submissions", "Recorded submissions.", nil, nil),
		participation: prometheus.NewDesc("votegate_participation_percent", "Submissions as a rounded percentage of the roster.", nil, nil),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.identities
	ch <- c.submissions
	ch <- c.participation
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	stats, err := c.source.Stats(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Error("collect ballot stats failed", zap.Error(err))
		ch <- prometheus.NewInvalidMetric(c.identities, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.identities, prometheus.GaugeValue, float64(stats.TotalIdentities))
	ch <- prometheus.MustNewConstMetric(c.submissions, prometheus.GaugeValue, float64(stats.TotalSubmissions))
	ch <- prometheus.MustNewConstMetric(c.participation, prometheus.GaugeValue, float64(stats.Participation))
}

// Nop discards everything; used when metrics are not wired.
type Nop struct{}

func (Nop) RecordIssue(error)  {}
func (Nop) RecordVerify(error) {}
func (Nop) RecordSubmit(error) {}
