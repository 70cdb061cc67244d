package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/posthog/posthog-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingPosthog records enqueued captures; the embedded interface covers the
// feature-flag methods nothing here calls.
type capturingPosthog struct {
	posthog.Client
	mu       sync.Mutex
	captures []posthog.Capture
}

func (p *capturingPosthog) Enqueue(msg posthog.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if capture, ok := msg.(posthog.Capture); ok {
		p.captures = append(p.captures, capture)
	}
	return nil
}

func (p *capturingPosthog) Close() error { return nil }

func newAnalyticsRouter(client *utils.PosthogClientWrapper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1", StructuredLoggingMiddleware(slog.Default()), AuthMiddleware(testSecret, ""), PosthogMiddleware(client))
	v1.POST("/loans/:loanID/return", func(c *gin.Context) {
		TrackEvent(c, "loan_returned", map[string]any{"fine_amount": "2.00"})
		c.Status(http.StatusOK)
	})
	v1.GET("/fines/:fineID", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	return r
}

func TestPosthogMiddleware_RouteAndDomainEvents(t *testing.T) {
	captured := &capturingPosthog{}
	r := newAnalyticsRouter(utils.NewPosthogClientWrapper(captured, nil))
	token := signToken(t, jwt.RegisteredClaims{Subject: "staff-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/loan-9/return", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// failed calls are not tracked
	req = httptest.NewRequest(http.MethodGet, "/api/v1/fines/nope", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, captured.captures, 2)

	domainEvent := captured.captures[0]
	assert.Equal(t, "loan_returned", domainEvent.Event)
	assert.Equal(t, "staff-1", domainEvent.DistinctId)
	assert.Equal(t, "2.00", domainEvent.Properties["fine_amount"])
	assert.Equal(t, "req-42", domainEvent.Properties["request_id"])

	routeEvent := captured.captures[1]
	assert.Equal(t, "loans_return", routeEvent.Event)
	assert.Equal(t, "/api/v1/loans/:loanID/return", routeEvent.Properties["route"])
	assert.Equal(t, map[string]string{"loanID": "loan-9"}, routeEvent.Properties["params"])
}

func TestTrackEvent_NoopWithoutClient(t *testing.T) {
	r := newAnalyticsRouter(&utils.PosthogClientWrapper{})
	token := signToken(t, jwt.RegisteredClaims{Subject: "staff-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/loan-9/return", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouteEventName(t *testing.T) {
	tests := map[string]string{
		"/api/v1/circulation/issue":                "circulation_issue",
		"/api/v1/loans/:loanID/renewals/reconcile": "loans_renewals_reconcile",
		"/api/v1/fines/:fineID":                    "fines",
		"":                                         "",
	}
	for path, want := range tests {
		assert.Equal(t, want, routeEventName(path), path)
	}
}
