// Package breach checks candidate passwords against a local weak-password
// denylist and a remote breach corpus speaking the Have-I-Been-Pwned range
// protocol.
//
// Privacy contract: only the first five hex characters of the uppercase
// SHA-1 of the password ever leave the process. The returned candidate
// suffixes are scanned locally for an exact match.
//
// Failure policy: the remote path fails open. Blocking signups and password
// changes on an external dependency being down is worse than occasionally
// missing a breach hit, so every network or HTTP error degrades to "not
// compromised" and is logged.
package breach

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DenylistCount marks a hit on the local denylist, distinguishing
// "trivially weak" from "found N times in the breach corpus".
const DenylistCount = -1

const (
	defaultBaseURL = "https://api.pwnedpasswords.com"
	defaultTimeout = 5 * time.Second
	prefixLen      = 5
)

// defaultDenylist covers passwords so common that no lookup is warranted.
// Matching is substring, lowercased: "MyPassword123!" is still weak.
var defaultDenylist = []string{
	"password",
	"123456",
	"12345678",
	"qwerty",
	"abc123",
	"letmein",
	"welcome",
	"iloveyou",
	"admin",
	"monkey",
	"dragon",
	"master",
	"sunshine",
	"princess",
	"football",
}

// Config tunes the checker. Zero values fall back to defaults.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Denylist []string
}

// Result is the outcome of one check.
type Result struct {
	Compromised bool
	// Count is the number of corpus occurrences, or [DenylistCount] for a
	// local denylist hit, or 0 when clean.
	Count int
}

// Checker is safe for concurrent use.
type Checker struct {
	client   *http.Client
	baseURL  string
	denylist []string
	logger   *slog.Logger
}

// New builds a checker from cfg.
func New(cfg Config, logger *slog.Logger) *Checker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Denylist == nil {
		cfg.Denylist = defaultDenylist
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		denylist: cfg.Denylist,
		logger:   logger,
	}
}

// Check runs the local denylist first and only then the remote lookup.
// It never returns an error: the remote path fails open by design.
func (c *Checker) Check(ctx context.Context, password string) Result {
	lowered := strings.ToLower(password)
	for _, weak := range c.denylist {
		if strings.Contains(lowered, weak) {
			return Result{Compromised: true, Count: DenylistCount}
		}
	}

	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:prefixLen], digest[prefixLen:]

	count, err := c.lookupRange(ctx, prefix, suffix)
	if err != nil {
		c.logger.Warn("breach lookup unavailable, failing open", "error", err)
		return Result{}
	}
	if count > 0 {
		return Result{Compromised: true, Count: count}
	}
	return Result{}
}

func (c *Checker) lookupRange(ctx context.Context, prefix, suffix string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/range/"+prefix, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("breach service returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		candidate, countText, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok {
			continue
		}
		if strings.EqualFold(candidate, suffix) {
			count, err := strconv.Atoi(strings.TrimSpace(countText))
			if err != nil {
				return 0, err
			}
			return count, nil
		}
	}
	return 0, scanner.Err()
}
