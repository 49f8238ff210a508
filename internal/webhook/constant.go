package webhook

import (
	"strings"

	"gitlab-metrics/internal/model"
)

// Request headers read by the ingress endpoint.
const (
	HeaderEventToken  = "X-Event-Token"
	HeaderGitlabToken = "X-Gitlab-Token"
	HeaderEventKind   = "X-Event-Kind"
	HeaderGitlabEvent = "X-Gitlab-Event"
	HeaderEventUUID   = "X-Gitlab-Event-UUID"
	HeaderRateLimit   = "X-RateLimit-Limit"
	HeaderRateRemain  = "X-RateLimit-Remaining"
	HeaderRateReset   = "X-RateLimit-Reset"
	HeaderRetryAfter  = "Retry-After"
)

var supportedEventKinds = map[string]struct{}{
	"push":               {},
	"push hook":          {},
	"merge request":      {},
	"merge_request":      {},
	"merge request hook": {},
	"issue":              {},
	"issue hook":         {},
	"pipeline":           {},
	"pipeline hook":      {},
	"job":                {},
	"job hook":           {},
}

// IsSupportedEventKind reports whether kind is on the ingress allow-list.
// Matching is case-insensitive.
func IsSupportedEventKind(kind string) bool {
	_, ok := supportedEventKinds[strings.ToLower(strings.TrimSpace(kind))]
	return ok
}

var kindAliases = map[string]model.EventKind{
	"push hook":          model.KindPush,
	"merge request hook": model.KindMergeRequest,
	"merge_request":      model.KindMergeRequest,
	"issue hook":         model.KindIssue,
	"pipeline hook":      model.KindPipeline,
	"job hook":           model.KindJob,
}

// NormalizeEventKind lower-cases kind and folds platform aliases onto the
// canonical kind names. Unknown kinds are returned lower-cased.
func NormalizeEventKind(kind string) model.EventKind {
	k := strings.ToLower(strings.TrimSpace(kind))
	if canonical, ok := kindAliases[k]; ok {
		return canonical
	}
	return model.EventKind(k)
}
