package player

import (
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/widget"
	promclient "github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "pencil"

// Metrics exports submission pipeline metrics to Prometheus. It is the
// widget Observer for every card a player opens. A nil *Metrics records
// nothing.
type Metrics struct {
	submissions *promclient.CounterVec
	suppressed  *promclient.CounterVec
	rejected    promclient.Counter
	outcomes    *promclient.CounterVec
	runDuration *promclient.HistogramVec
}

// NewMetrics registers player metrics with reg, reusing collectors that
// are already registered.
func NewMetrics(namespace string, reg promclient.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	m := &Metrics{
		submissions: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "answers_submitted_total",
			Help:      "Answers handed to the grader, by answer kind.",
		}, []string{"kind"}),
		suppressed: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_suppressed_total",
			Help:      "Submission attempts that produced no answer, by reason.",
		}, []string{"reason"}),
		rejected: promclient.NewCounter(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Submission attempts rejected because the code was blank.",
		}),
		outcomes: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "answers_graded_total",
			Help:      "Graded answers, by correctness and whether the default outcome applied.",
		}, []string{"correct", "default"}),
		runDuration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Learner program run time.",
			Buckets:   promclient.DefBuckets,
		}, []string{"language"}),
	}

	var err error
	if m.submissions, err = register(reg, m.submissions); err != nil {
		return nil, err
	}
	if m.suppressed, err = register(reg, m.suppressed); err != nil {
		return nil, err
	}
	if m.rejected, err = register(reg, m.rejected); err != nil {
		return nil, err
	}
	if m.outcomes, err = register(reg, m.outcomes); err != nil {
		return nil, err
	}
	if m.runDuration, err = register(reg, m.runDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(promclient.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register player metrics: %w", err)
	}
	return c, nil
}

func (m *Metrics) AnswerSubmitted(kind domain.AnswerKind) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) SubmissionSuppressed(reason widget.SuppressReason) {
	if m == nil {
		return
	}
	m.suppressed.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) SubmissionRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

// AnswerGraded records a classification outcome
func (m *Metrics) AnswerGraded(correct, isDefault bool) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(strconv.FormatBool(correct), strconv.FormatBool(isDefault)).Inc()
}

// RunFinished records how long a learner program ran
func (m *Metrics) RunFinished(language string, d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(language).Observe(d.Seconds())
}

var _ widget.Observer = (*Metrics)(nil)
