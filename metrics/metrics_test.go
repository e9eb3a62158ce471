package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsEndpoint(t *testing.T) {
	// Initialize metrics - including vector metrics to ensure they appear
	RecordGuideRefresh(OutcomeSuccess)
	RecordGuideSourceError()
	RecordCatalogRebuild(OutcomeError)
	RecordSingleFlightDrop("guide")
	SetProgramsStored(0)
	SetChannelsCached(0)
	RecordProgramsExpired(0)

	// Create a test server with the Prometheus handler
	handler := promhttp.Handler()
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	output := string(body)

	expectedMetrics := []string{
		"iptv_guide_refreshes_total",
		"iptv_guide_source_errors_total",
		"iptv_guide_programs_stored",
		"iptv_guide_programs_expired_total",
		"iptv_catalog_rebuilds_total",
		"iptv_catalog_channels_cached",
		"iptv_single_flight_drops_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(output, metric) {
			t.Errorf("Expected metric %q in /metrics output", metric)
		}
	}
}
