// Package assets loads the supporting scripts injected alongside every
// snippet: the dashboard data-fetch mock from disk and the charting
// library from its CDN. Loaded once at harness construction.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cironolaenvision/test-html/internal/harness"
)

const (
	DashboardScriptName = "dashboard_javascript"
	DashboardScriptURL  = "dashboard_javascript.js"
	ChartLibraryName    = "chart_library"
	ChartLibraryURL     = "chart.js"

	// DefaultChartCDN is where the charting library body is fetched
	// from at construction time; it is served locally afterwards.
	DefaultChartCDN = "https://cdn.jsdelivr.net/npm/chart.js"
)

// FromFile reads a supporting script body from disk.
func FromFile(path, url, name string) (harness.SupportingScript, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return harness.SupportingScript{}, fmt.Errorf("read script %s: %w", path, err)
	}
	return harness.NewSupportingScript(string(content), url, name), nil
}

// FromURL fetches a supporting script body over HTTP.
func FromURL(ctx context.Context, client *http.Client, src, url, name string) (harness.SupportingScript, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return harness.SupportingScript{}, fmt.Errorf("build request for %s: %w", src, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return harness.SupportingScript{}, fmt.Errorf("fetch script %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return harness.SupportingScript{}, fmt.Errorf("fetch script %s: unexpected status %s", src, resp.Status)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return harness.SupportingScript{}, fmt.Errorf("read script body %s: %w", src, err)
	}
	return harness.NewSupportingScript(string(content), url, name), nil
}

// LoadDefault assembles the two standard supporting scripts in the order
// the composed page references them.
func LoadDefault(ctx context.Context, publicDir, chartCDN string) ([]harness.SupportingScript, error) {
	if chartCDN == "" {
		chartCDN = DefaultChartCDN
	}
	dashboard, err := FromFile(filepath.Join(publicDir, DashboardScriptURL), DashboardScriptURL, DashboardScriptName)
	if err != nil {
		return nil, err
	}
	chart, err := FromURL(ctx, nil, chartCDN, ChartLibraryURL, ChartLibraryName)
	if err != nil {
		return nil, err
	}
	return []harness.SupportingScript{dashboard, chart}, nil
}
