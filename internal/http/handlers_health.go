package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"buckets/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports 503 until the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}
	if err := s.svc.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
		s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
	} else {
		checks["store"] = "ok"
	}
	checks["summary_cache"] = s.svc.SummaryCacheStats()
	checks["rate_limiter"] = s.rateLimiter.GetMetrics()

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	cacheStats := s.svc.SummaryCacheStats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_us", "gauge", "Average response time in microseconds", traceMetrics.AverageResponseTime)
	metric("summary_cache_hits_total", "counter", "Week summary cache hits", cacheStats.Hits)
	metric("summary_cache_misses_total", "counter", "Week summary cache misses", cacheStats.Misses)
	metric("summary_cache_entries", "gauge", "Cached week summaries", cacheStats.Size)
	metric("rate_limit_rejections_total", "counter", "Requests rejected by the rate limiter", limitMetrics.Rejected)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Probing requests rejected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Process uptime in seconds", int64(time.Since(s.started).Seconds()))
}

// handleAllocationPreview splits ?amount= into buckets without saving anything.
func (s *Server) handleAllocationPreview(w http.ResponseWriter, r *http.Request) {
	amount, err := core.ParseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		s.writeError(w, r, "preview", err)
		return
	}
	allocs, err := core.Allocate(amount)
	if err != nil {
		s.writeError(w, r, "preview", err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"income":      amount,
		"allocations": allocs,
	}).Write(w)
}
