package parsers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 16 * 1024
	maxErrSnippet = 200
)

var (
	// ErrNoRoute means the output carried no recognisable router field.
	ErrNoRoute = errors.New("no router field in model output")
	// ErrAmbiguousRoute means the output named more than one distinct route.
	ErrAmbiguousRoute = errors.New("model output names conflicting routes")
)

// routerField only accepts a quoted label that is exactly one of the routes,
// so "drafting" or "draft_contract" never match.
var routerField = regexp.MustCompile(`"router"\s*:\s*"(memory|draft|review|lookup|smalltalk)"`)

// ParseRouterOutput extracts the route from a classifier reply of the form
// {"router": "draft"}. It fails closed: anything short of one unambiguous,
// valid label is an error and the caller must fall back.
func ParseRouterOutput(content string) (route model.Route, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "router_parser").Msgf("panic recovered: %v", r)
			route = ""
			err = errx.New(fmt.Errorf("router parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
		}
	}()

	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrNoRoute
	}
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "router_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = truncateRunes(content, maxContentLen)
	}

	matches := routerField.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %q", ErrNoRoute, safeSnippet(content))
	}

	for _, m := range matches {
		r, ok := model.ParseRoute(m[1])
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNoRoute, m[1])
		}
		if route != "" && r != route {
			return "", fmt.Errorf("%w: %s vs %s", ErrAmbiguousRoute, route, r)
		}
		route = r
	}
	return route, nil
}

// --- helpers ---

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return truncateRunes(s, maxErrSnippet)
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
