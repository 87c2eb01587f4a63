// Copyright 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

// Package updater checks GitHub for a newer scalewatch release.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/fatih/color"
	"github.com/hashicorp/go-version"
)

const (
	// GitHubAPIURL is the endpoint for fetching the latest release
	GitHubAPIURL = "https://api.github.com/repos/dotandev/scalewatch/releases/latest"
	// CheckInterval is how often the background check hits the network
	CheckInterval = 24 * time.Hour
	// RequestTimeout is the maximum time to wait for GitHub API
	RequestTimeout = 5 * time.Second

	// DisableEnv turns the background check off when set to any value.
	DisableEnv = "SCALEWATCH_NO_UPDATE_CHECK"

	cacheFileName = "last_update_check"
)

type Checker struct {
	currentVersion string
	cacheDir       string
	releaseURL     string
	client         *http.Client
	now            func() time.Time
}

type GitHubRelease struct {
	TagName string `json:"tag_name"`
}

type CacheData struct {
	LastCheck     time.Time `json:"last_check"`
	LatestVersion string    `json:"latest_version"`
}

// Result is the outcome of one check.
type Result struct {
	Current     string
	Latest      string
	NeedsUpdate bool
}

func NewChecker(currentVersion string) *Checker {
	return &Checker{
		currentVersion: currentVersion,
		cacheDir:       getCacheDir(),
		releaseURL:     GitHubAPIURL,
		client:         &http.Client{Timeout: RequestTimeout},
		now:            time.Now,
	}
}

// WithReleaseURL points the checker at another releases endpoint.
func (c *Checker) WithReleaseURL(url string) *Checker {
	c.releaseURL = url
	return c
}

// WithCacheDir overrides where the last check is remembered.
func (c *Checker) WithCacheDir(dir string) *Checker {
	c.cacheDir = dir
	return c
}

// Disabled reports whether the user opted out of background checks.
func Disabled() bool {
	return os.Getenv(DisableEnv) != ""
}

// Check asks GitHub for the latest release and compares it with the running
// version. The answer is cached for CheckBackground.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	res := Result{Current: c.currentVersion}

	latest, err := c.fetchLatestVersion(ctx)
	if err != nil {
		return res, err
	}
	res.Latest = latest

	if err := c.updateCache(latest); err != nil {
		logger.Logger.Debug("Failed to write update-check cache", "error", err)
	}

	res.NeedsUpdate, err = NeedsUpdate(c.currentVersion, latest)
	return res, err
}

// CheckBackground is the quiet variant run on every command: it does
// nothing when disabled or when the last check is younger than
// CheckInterval, and swallows every error. ok is false when there is
// nothing to report.
func (c *Checker) CheckBackground(ctx context.Context) (res Result, ok bool) {
	if Disabled() || !c.shouldCheck() {
		return Result{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	res, err := c.Check(ctx)
	if err != nil {
		logger.Logger.Debug("Update check failed", "error", err)
		return Result{}, false
	}
	return res, res.NeedsUpdate
}

func (c *Checker) shouldCheck() bool {
	data, err := os.ReadFile(filepath.Join(c.cacheDir, cacheFileName))
	if err != nil {
		return true
	}

	var cache CacheData
	if err := json.Unmarshal(data, &cache); err != nil {
		return true
	}

	return c.now().Sub(cache.LastCheck) >= CheckInterval
}

func (c *Checker) fetchLatestVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releaseURL, nil)
	if err != nil {
		return "", err
	}

	// GitHub API requires a User-Agent
	req.Header.Set("User-Agent", "scalewatch-cli")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var release GitHubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return "", err
	}
	if release.TagName == "" {
		return "", fmt.Errorf("release has no tag")
	}

	return release.TagName, nil
}

// NeedsUpdate reports whether latest is newer than current. Development
// builds never need an update.
func NeedsUpdate(current, latest string) (bool, error) {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")

	if current == "dev" || current == "" {
		return false, nil
	}

	currentVer, err := version.NewVersion(current)
	if err != nil {
		return false, err
	}

	latestVer, err := version.NewVersion(latest)
	if err != nil {
		return false, err
	}

	return latestVer.GreaterThan(currentVer), nil
}

// Notify prints the upgrade hint for res.
func Notify(w io.Writer, res Result) {
	fmt.Fprintf(w, "\n%s scalewatch %s is available (you have %s)\n",
		color.YellowString("update:"), res.Latest, res.Current)
	fmt.Fprintln(w, "        go install github.com/dotandev/scalewatch/cmd/scalewatch@latest")
}

func (c *Checker) updateCache(latestVersion string) error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return err
	}

	data, err := json.Marshal(CacheData{
		LastCheck:     c.now(),
		LatestVersion: latestVersion,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(c.cacheDir, cacheFileName), data, 0644)
}

// getCacheDir returns the appropriate cache directory for the platform
func getCacheDir() string {
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, "scalewatch")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".cache", "scalewatch")
	}

	return filepath.Join(os.TempDir(), "scalewatch")
}
