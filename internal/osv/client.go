// Package osv implements the batched OSV.dev client, severity
// normalization, and the OSV-detail -> NVD CVSS -> GHSA label fallback
// chain described in the scan orchestrator's advisory resolution step.
package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bardcheck/bardscan/internal/cache"
	"github.com/bardcheck/bardscan/internal/models"
)

const (
	DefaultBaseURL = "https://api.osv.dev"
	ecosystem      = "npm"
	requestTimeout = 15 * time.Second
)

// LookupResult is one dependency's batch-query outcome: where the data
// came from and its normalized vulnerabilities.
type LookupResult struct {
	Source          models.Source
	Vulnerabilities []models.Vulnerability
}

// Client batches OSV lookups behind a cache and an optional enrichment
// fallback chain. The HTTP client is injected so tests can supply a
// deterministic routing stub instead of patching a process-global.
type Client struct {
	HTTP                   *http.Client
	Cache                  *cache.Cache
	BaseURL                string
	Offline                bool
	EnableNetworkFallbacks bool
}

func NewClient(httpClient *http.Client, c *cache.Cache, baseURL string, offline, enableNetworkFallbacks bool) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		HTTP:                   httpClient,
		Cache:                  c,
		BaseURL:                baseURL,
		Offline:                offline,
		EnableNetworkFallbacks: enableNetworkFallbacks,
	}
}

// BatchQuery resolves vulnerabilities for every dependency: cache first,
// then one batched OSV query for the misses, then the enrichment chain
// when network fallbacks are permitted.
func (c *Client) BatchQuery(ctx context.Context, deps []models.DependencyNode) (map[string]LookupResult, error) {
	if err := c.Cache.EnsureRoot(); err != nil {
		return nil, models.WrapScanError(models.OutDirUnwritable, c.Cache.Root(), err)
	}
	if !c.Offline {
		c.Cache.Prune()
	}

	results := make(map[string]LookupResult, len(deps))
	var queue []models.DependencyNode

	for _, dep := range deps {
		key := dep.Key()
		var cached []models.Vulnerability
		if c.Cache.Get(cache.NamespaceBatch, batchCacheKey(dep), &cached) {
			results[key] = LookupResult{Source: models.SourceCache, Vulnerabilities: normalizeCachedEntries(cached)}
			continue
		}
		if c.Offline {
			results[key] = LookupResult{Source: models.SourceUnknown, Vulnerabilities: nil}
			continue
		}
		queue = append(queue, dep)
	}

	if len(queue) == 0 {
		return results, nil
	}

	resp, err := c.doBatchQuery(ctx, queue)
	if err != nil {
		// Treat the entire batch as unknown; no partial retry.
		for _, dep := range queue {
			results[dep.Key()] = LookupResult{Source: models.SourceUnknown, Vulnerabilities: nil}
		}
		return results, nil
	}

	fetched := make(map[string][]models.Vulnerability, len(queue))
	for i, dep := range queue {
		if i >= len(resp.Results) {
			results[dep.Key()] = LookupResult{Source: models.SourceUnknown, Vulnerabilities: nil}
			continue
		}
		vulns := make([]models.Vulnerability, 0, len(resp.Results[i].Vulns))
		for _, raw := range resp.Results[i].Vulns {
			vulns = append(vulns, normalizeVuln(raw, "osv"))
		}
		fetched[dep.Key()] = vulns
		results[dep.Key()] = LookupResult{Source: models.SourceOSV, Vulnerabilities: vulns}
	}

	if c.EnableNetworkFallbacks {
		c.enrich(ctx, fetched)
		for key, vulns := range fetched {
			results[key] = LookupResult{Source: models.SourceOSV, Vulnerabilities: vulns}
		}
	}

	for _, dep := range queue {
		if vulns, ok := fetched[dep.Key()]; ok {
			_ = c.Cache.Put(cache.NamespaceBatch, batchCacheKey(dep), vulns)
		}
	}

	return results, nil
}

func batchCacheKey(dep models.DependencyNode) string {
	data, _ := json.Marshal(cacheKeyPair{Name: dep.Name, Version: dep.Version})
	return string(data)
}

func (c *Client) doBatchQuery(ctx context.Context, queue []models.DependencyNode) (*batchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := batchRequest{Queries: make([]batchQuery, len(queue))}
	for i, dep := range queue {
		req.Queries[i] = batchQuery{
			Package: packageInfo{Name: dep.Name, Ecosystem: ecosystem},
			Version: dep.Version,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/querybatch", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osv batch query returned status %d", resp.StatusCode)
	}

	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// normalizeCachedEntries backfills severitySource for cache entries
// written before that field existed: unknown severity without a source
// gets unknown (plus unknownReason=missing_score if absent); anything
// else gets osv_label.
func normalizeCachedEntries(vulns []models.Vulnerability) []models.Vulnerability {
	for i, v := range vulns {
		if v.SeveritySource != "" {
			continue
		}
		if v.Severity == models.SeverityUnknown {
			vulns[i].SeveritySource = models.SourceUnknownSev
			if v.UnknownReason == nil {
				reason := models.ReasonMissingScore
				vulns[i].UnknownReason = &reason
			}
		} else {
			vulns[i].SeveritySource = models.SourceOSVLabel
		}
	}
	return vulns
}
