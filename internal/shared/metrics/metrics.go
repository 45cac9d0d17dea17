package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docpanel"

var (
	documentsUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_uploaded_total",
		Help:      "Documents accepted for processing, by file type",
	}, []string{"file_type"})

	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Processing pipeline runs by terminal outcome",
	}, []string{"outcome"})

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Wall time of one processing pipeline run",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	ocrPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ocr_pages_total",
		Help:      "PDF pages handled, by extraction source",
	}, []string{"source"})

	embeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_requests_total",
		Help:      "Embedding requests by outcome",
	}, []string{"outcome"})

	searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Similarity searches by outcome",
	}, []string{"outcome"})

	queueJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_jobs_total",
		Help:      "Queue jobs by outcome",
	}, []string{"outcome"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// IncDocumentUploaded counts an accepted upload.
func IncDocumentUploaded(fileType string) {
	documentsUploaded.WithLabelValues(fileType).Inc()
}

// IncPipelineCompleted counts a run that reached completed.
func IncPipelineCompleted() {
	pipelineRuns.WithLabelValues("completed").Inc()
}

// IncPipelineFailed counts a run that reached failed.
func IncPipelineFailed() {
	pipelineRuns.WithLabelValues("failed").Inc()
}

// ObservePipelineDuration records how long a run took.
func ObservePipelineDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	pipelineDuration.Observe(d.Seconds())
}

// IncOCRPage counts a PDF page by source ("text", "ocr", "error").
func IncOCRPage(source string) {
	ocrPages.WithLabelValues(source).Inc()
}

// IncEmbedding counts an embedding request by outcome.
func IncEmbedding(outcome string) {
	embeddingRequests.WithLabelValues(outcome).Inc()
}

// IncSearch counts a search by outcome ("ranked", "fallback", "empty").
func IncSearch(outcome string) {
	searches.WithLabelValues(outcome).Inc()
}

// IncQueueJob counts a queue job by outcome.
func IncQueueJob(outcome string) {
	queueJobs.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one finished HTTP request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
