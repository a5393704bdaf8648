package osv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bardcheck/bardscan/internal/cache"
	"github.com/bardcheck/bardscan/internal/models"
)

func TestBatchQueryOfflineEmptyCacheProducesUnknown(t *testing.T) {
	c := cache.New(t.TempDir(), false)
	client := NewClient(&http.Client{}, c, "", true, false)

	deps := []models.DependencyNode{{Name: "lodash", Version: "4.17.21", Direct: true}}
	results, err := client.BatchQuery(context.Background(), deps)
	if err != nil {
		t.Fatalf("BatchQuery: %v", err)
	}
	result := results["lodash@4.17.21"]
	if result.Source != models.SourceUnknown {
		t.Errorf("Source = %v, want unknown", result.Source)
	}
	if len(result.Vulnerabilities) != 0 {
		t.Errorf("expected no vulnerabilities, got %+v", result.Vulnerabilities)
	}
}

func TestBatchQuerySuccessNormalizesAndCaches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := batchResponse{Results: make([]queryResult, len(req.Queries))}
		for i, q := range req.Queries {
			if q.Package.Name == "lodash" {
				resp.Results[i] = queryResult{Vulns: []rawVuln{
					{ID: "GHSA-1", Severity: []rawSeverity{{Type: "CVSS_V3", Score: "9.8"}}},
				}}
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := cache.New(t.TempDir(), false)
	client := NewClient(server.Client(), c, server.URL, false, false)

	deps := []models.DependencyNode{{Name: "lodash", Version: "4.17.21", Direct: true}}
	results, err := client.BatchQuery(context.Background(), deps)
	if err != nil {
		t.Fatalf("BatchQuery: %v", err)
	}
	result := results["lodash@4.17.21"]
	if result.Source != models.SourceOSV {
		t.Fatalf("Source = %v, want osv", result.Source)
	}
	if len(result.Vulnerabilities) != 1 || result.Vulnerabilities[0].Severity != models.SeverityCritical {
		t.Fatalf("unexpected vulnerabilities: %+v", result.Vulnerabilities)
	}

	// Second call should hit the cache without touching the server.
	server.Close()
	results2, err := client.BatchQuery(context.Background(), deps)
	if err != nil {
		t.Fatalf("BatchQuery (cached): %v", err)
	}
	if results2["lodash@4.17.21"].Source != models.SourceCache {
		t.Errorf("expected cache hit on second call, got %v", results2["lodash@4.17.21"].Source)
	}
}

func TestBatchQueryServerFailureMarksWholeBatchUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := cache.New(t.TempDir(), false)
	client := NewClient(server.Client(), c, server.URL, false, false)

	deps := []models.DependencyNode{
		{Name: "lodash", Version: "4.17.21", Direct: true},
		{Name: "chalk", Version: "5.0.0", Direct: true},
	}
	results, err := client.BatchQuery(context.Background(), deps)
	if err != nil {
		t.Fatalf("BatchQuery: %v", err)
	}
	for key, result := range results {
		if result.Source != models.SourceUnknown {
			t.Errorf("%s: Source = %v, want unknown", key, result.Source)
		}
	}
}
