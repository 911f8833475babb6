package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoginAttemptsTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues("failure"))
	LoginAttemptsTotal.WithLabelValues("failure").Inc()
	after := testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues("failure"))
	if after != before+1 {
		t.Errorf("failure counter = %v, want %v", after, before+1)
	}
}

func TestPlanLimitRejectionsTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(PlanLimitRejectionsTotal.WithLabelValues("project"))
	PlanLimitRejectionsTotal.WithLabelValues("project").Inc()
	after := testutil.ToFloat64(PlanLimitRejectionsTotal.WithLabelValues("project"))
	if after != before+1 {
		t.Errorf("project counter = %v, want %v", after, before+1)
	}
}

func TestAuditWriteFailuresTotal(t *testing.T) {
	before := testutil.ToFloat64(AuditWriteFailuresTotal)
	AuditWriteFailuresTotal.Inc()
	if got := testutil.ToFloat64(AuditWriteFailuresTotal); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}

func TestHTTPRequestsTotal_RouteTemplateLabels(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/api/projects/:id", "200").Inc()
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/projects/:id", "200")); got < 1 {
		t.Errorf("counter = %v, want >= 1", got)
	}
}
