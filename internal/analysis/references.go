package analysis

import (
	"regexp"
	"sort"
	"strconv"
)

var (
	// GitLab closing pattern: "Closes #12", "fixed #3", "Resolves #7".
	closingRefPattern = regexp.MustCompile(`(?i)\b(?:clos(?:e|es|ed|ing)|fix(?:es|ed|ing)?|resolv(?:e|es|ed|ing)|implement(?:s|ed|ing)?)\s*:?\s+#(\d+)`)
	issueRefPattern   = regexp.MustCompile(`(?:^|[^\w&])#(\d+)\b`)
	mergeRefPattern   = regexp.MustCompile(`(?:^|[^\w])!(\d+)\b`)
)

// references are the issue and merge request ids mentioned in free text.
type references struct {
	Issues        []int64
	ClosesIssues  []int64
	MergeRequests []int64
}

func (r references) empty() bool {
	return len(r.Issues) == 0 && len(r.MergeRequests) == 0
}

func extractReferences(texts ...string) references {
	issues := map[int64]struct{}{}
	closes := map[int64]struct{}{}
	mrs := map[int64]struct{}{}

	for _, text := range texts {
		collect(issueRefPattern, text, issues)
		collect(closingRefPattern, text, closes)
		collect(mergeRefPattern, text, mrs)
	}

	return references{
		Issues:        sortedIDs(issues),
		ClosesIssues:  sortedIDs(closes),
		MergeRequests: sortedIDs(mrs),
	}
}

func (r references) fields(into map[string]any) {
	if r.empty() {
		return
	}
	into["issue_refs"] = r.Issues
	into["closes_issues"] = r.ClosesIssues
	into["merge_request_refs"] = r.MergeRequests
}

func collect(re *regexp.Regexp, text string, into map[int64]struct{}) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			into[id] = struct{}{}
		}
	}
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
