package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	invocationsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guild_bot_invocations_received_total",
		Help: "Total number of command invocations received",
	}, []string{"platform"})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guild_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command", "status"})

	cooldownDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guild_bot_cooldown_decisions_total",
		Help: "Cooldown gate decisions",
	}, []string{"command", "decision"})

	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "guild_bot_completion_request_duration_seconds",
		Help:    "Duration of completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	completionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guild_bot_completion_requests_total",
		Help: "Total number of completion requests",
	}, []string{"status"})

	extractionMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guild_bot_extraction_misses_total",
		Help: "Completion responses that fell back to the default reply",
	})

	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guild_bot_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"platform"})

	openTickets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guild_bot_open_tickets",
		Help: "Number of open ticket channels",
	})

	cooldownKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guild_bot_cooldown_keys",
		Help: "Number of tracked cooldown scope keys",
	})

	membersGreeted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guild_bot_members_greeted_total",
		Help: "Total number of greeted members",
	}, []string{"platform"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordInvocation records a received command invocation
func (m *Metrics) RecordInvocation(platform string) {
	invocationsReceived.WithLabelValues(platform).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command, status string) {
	commandsExecuted.WithLabelValues(command, status).Inc()
}

// RecordCooldownDecision records a gate decision
func (m *Metrics) RecordCooldownDecision(command string, allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	cooldownDecisions.WithLabelValues(command, decision).Inc()
}

// RecordCompletionRequest records a completion request
func (m *Metrics) RecordCompletionRequest(status string, duration time.Duration) {
	completionDuration.WithLabelValues(status).Observe(duration.Seconds())
	completionRequests.WithLabelValues(status).Inc()
}

// RecordExtractionMiss records a response without recoverable text
func (m *Metrics) RecordExtractionMiss() {
	extractionMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(platform string) {
	rateLimitExceeded.WithLabelValues(platform).Inc()
}

// RecordMemberGreeted records a greeting
func (m *Metrics) RecordMemberGreeted(platform string) {
	membersGreeted.WithLabelValues(platform).Inc()
}

// SetOpenTickets sets the number of open tickets
func (m *Metrics) SetOpenTickets(count int) {
	openTickets.Set(float64(count))
}

// SetCooldownKeys sets the number of tracked cooldown keys
func (m *Metrics) SetCooldownKeys(count int) {
	cooldownKeys.Set(float64(count))
}

// NewMetricsRouter returns the router serving metrics and the health check
func NewMetricsRouter(path string) *mux.Router {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}

// StartMetricsServer serves metrics until ctx is cancelled
func StartMetricsServer(ctx context.Context, port int, path string) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMetricsRouter(path),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
