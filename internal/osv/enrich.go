package osv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bardcheck/bardscan/internal/cache"
	"github.com/bardcheck/bardscan/internal/models"
)

const enrichWorkers = 6

type workItem struct {
	depKey string
	idx    int
}

// enrich walks every still-unknown vulnerability in fetched and resolves
// it through the OSV detail -> NVD CVSS -> GHSA chain with bounded
// concurrency, mutating fetched in place. Each work item writes only its
// own slice index, so no additional synchronization is needed across
// workers.
func (c *Client) enrich(ctx context.Context, fetched map[string][]models.Vulnerability) {
	var items []workItem
	for depKey, vulns := range fetched {
		for i, v := range vulns {
			if v.Severity == models.SeverityUnknown {
				items = append(items, workItem{depKey: depKey, idx: i})
			}
		}
	}
	if len(items) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)

	for _, item := range items {
		item := item
		g.Go(func() error {
			list := fetched[item.depKey]
			v := list[item.idx]
			list[item.idx] = c.resolveUnknown(gctx, v)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Client) resolveUnknown(ctx context.Context, v models.Vulnerability) models.Vulnerability {
	if resolved, ok := c.fetchDetail(ctx, v.ID); ok {
		v.Severity = resolved.Severity
		v.SeveritySource = resolved.SeveritySource
		v.UnknownReason = nil
		return v
	}

	for _, alias := range v.Aliases {
		if !strings.HasPrefix(alias, "CVE-") {
			continue
		}
		if score, ok := c.fetchNVDScore(ctx, alias); ok {
			v.Severity = models.SeverityFromScore(score)
			v.SeveritySource = models.SourceAliasCVSS
			v.UnknownReason = nil
			return v
		}
	}

	ghsaIDs := append([]string{v.ID}, v.Aliases...)
	for _, id := range ghsaIDs {
		if !strings.HasPrefix(id, "GHSA-") {
			continue
		}
		if severity, source, ok := c.fetchGHSA(ctx, id); ok {
			v.Severity = severity
			v.SeveritySource = source
			v.UnknownReason = nil
			return v
		}
	}

	reason := models.ReasonLookupFailed
	v.Severity = models.SeverityUnknown
	v.SeveritySource = models.SourceUnknownSev
	v.UnknownReason = &reason
	return v
}

// DetailCacheKey is the canonical pre-hash key for an advisory's detail
// document, shared with the db updater's cache pre-warming path.
func DetailCacheKey(id string) string {
	key, _ := json.Marshal(cacheKeyID{ID: id})
	return string(key)
}

// fetchDetail fetches GET /v1/vulns/<id>, using and populating the detail
// cache namespace.
func (c *Client) fetchDetail(ctx context.Context, id string) (models.Vulnerability, bool) {
	key := DetailCacheKey(id)
	var cached rawVuln
	if !c.Cache.Get(cache.NamespaceDetail, key, &cached) {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.BaseURL+"/v1/vulns/"+url.PathEscape(id), nil)
		if err != nil {
			return models.Vulnerability{}, false
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return models.Vulnerability{}, false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return models.Vulnerability{}, false
		}
		if err := json.NewDecoder(resp.Body).Decode(&cached); err != nil {
			return models.Vulnerability{}, false
		}
		_ = c.Cache.Put(cache.NamespaceDetail, key, cached)
	}

	normalized := normalizeVuln(cached, "osv_detail")
	if normalized.Severity == models.SeverityUnknown {
		return models.Vulnerability{}, false
	}
	return normalized, true
}

type nvdResponse struct {
	Vulnerabilities []struct {
		CVE struct {
			Metrics struct {
				CVSSMetricV31 []nvdCVSSMetric `json:"cvssMetricV31"`
				CVSSMetricV30 []nvdCVSSMetric `json:"cvssMetricV30"`
				CVSSMetricV2  []nvdCVSSMetric `json:"cvssMetricV2"`
			} `json:"metrics"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVSSMetric struct {
	CVSSData struct {
		BaseScore float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// fetchNVDScore fetches the NVD CVSS base score for a CVE, preferring
// v3.1 -> v3.0 -> v2, using and populating the nvd cache namespace.
func (c *Client) fetchNVDScore(ctx context.Context, cveID string) (float64, bool) {
	key, _ := json.Marshal(cacheKeyCVE{CVEID: cveID})
	var cached nvdCVSSCache
	if c.Cache.Get(cache.NamespaceNVD, string(key), &cached) {
		return cached.Score, true
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet,
		"https://services.nvd.nist.gov/rest/json/cves/2.0?cveId="+url.QueryEscape(cveID), nil)
	if err != nil {
		return 0, false
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false
	}

	var parsed nvdResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, false
	}
	if len(parsed.Vulnerabilities) == 0 {
		return 0, false
	}
	metrics := parsed.Vulnerabilities[0].CVE.Metrics
	var score float64
	switch {
	case len(metrics.CVSSMetricV31) > 0:
		score = metrics.CVSSMetricV31[0].CVSSData.BaseScore
	case len(metrics.CVSSMetricV30) > 0:
		score = metrics.CVSSMetricV30[0].CVSSData.BaseScore
	case len(metrics.CVSSMetricV2) > 0:
		score = metrics.CVSSMetricV2[0].CVSSData.BaseScore
	default:
		return 0, false
	}

	_ = c.Cache.Put(cache.NamespaceNVD, string(key), nvdCVSSCache{Score: score})
	return score, true
}

type ghsaResponse struct {
	Severity string `json:"severity"`
	CVSS     struct {
		Score float64 `json:"score"`
	} `json:"cvss"`
}

// fetchGHSA fetches the GitHub advisories endpoint for a GHSA id, using
// and populating the ghsa cache namespace.
func (c *Client) fetchGHSA(ctx context.Context, ghsaID string) (models.Severity, models.SeveritySource, bool) {
	key, _ := json.Marshal(cacheKeyGHSA{GHSAID: ghsaID})
	var cached ghsaSeverityCache
	if c.Cache.Get(cache.NamespaceGHSA, string(key), &cached) {
		if cached.Severity == "" {
			return models.SeverityUnknown, "", false
		}
		return models.Severity(cached.Severity), models.SeveritySource(cached.SeveritySource), true
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet,
		"https://api.github.com/advisories/"+url.PathEscape(ghsaID), nil)
	if err != nil {
		return models.SeverityUnknown, "", false
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "bardcheck-bardscan")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return models.SeverityUnknown, "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.SeverityUnknown, "", false
	}

	var parsed ghsaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.SeverityUnknown, "", false
	}

	var severity models.Severity
	var source models.SeveritySource
	switch {
	case parsed.CVSS.Score > 0:
		severity, source = models.SeverityFromScore(parsed.CVSS.Score), models.SourceGHSACVSS
	default:
		if sev, ok := severityFromLabel(parsed.Severity); ok {
			severity, source = sev, models.SourceGHSALabel
		}
	}
	if severity == "" {
		_ = c.Cache.Put(cache.NamespaceGHSA, string(key), ghsaSeverityCache{})
		return models.SeverityUnknown, "", false
	}

	_ = c.Cache.Put(cache.NamespaceGHSA, string(key), ghsaSeverityCache{Severity: string(severity), SeveritySource: string(source)})
	return severity, source, true
}
