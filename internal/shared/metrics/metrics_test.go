package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHandlerExposesCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncDocumentUploaded("pdf")
	IncPipelineCompleted()
	IncSearch("ranked")
	ObservePipelineDuration(1500 * time.Millisecond)
	ObserveHTTP(http.MethodGet, "/api/v1/documents", http.StatusOK, 10*time.Millisecond)

	r := gin.New()
	r.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		`docpanel_documents_uploaded_total{file_type="pdf"}`,
		`docpanel_pipeline_runs_total{outcome="completed"}`,
		`docpanel_searches_total{outcome="ranked"}`,
		"docpanel_pipeline_duration_seconds_bucket",
		`docpanel_http_requests_total{method="GET",route="/api/v1/documents",status="200"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}
