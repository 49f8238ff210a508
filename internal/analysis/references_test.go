package analysis

import (
	"reflect"
	"testing"
)

func TestExtractReferences(t *testing.T) {
	tests := []struct {
		name   string
		texts  []string
		issues []int64
		closes []int64
		mrs    []int64
	}{
		{
			name:   "closing keywords",
			texts:  []string{"Fixes #12 and refs #7, see !45", "Closes: #3"},
			issues: []int64{3, 7, 12},
			closes: []int64{3, 12},
			mrs:    []int64{45},
		},
		{
			name:   "leading reference and duplicates",
			texts:  []string{"#5 broken again", "resolved #5"},
			issues: []int64{5},
			closes: []int64{5},
			mrs:    []int64{},
		},
		{
			name:   "html entities and anchors are not references",
			texts:  []string{"it&#39;s fine", "see docs#section"},
			issues: []int64{},
			closes: []int64{},
			mrs:    []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractReferences(tt.texts...)
			if !reflect.DeepEqual(got.Issues, tt.issues) {
				t.Errorf("Issues = %v, want %v", got.Issues, tt.issues)
			}
			if !reflect.DeepEqual(got.ClosesIssues, tt.closes) {
				t.Errorf("ClosesIssues = %v, want %v", got.ClosesIssues, tt.closes)
			}
			if !reflect.DeepEqual(got.MergeRequests, tt.mrs) {
				t.Errorf("MergeRequests = %v, want %v", got.MergeRequests, tt.mrs)
			}
		})
	}
}

func TestReferencesFields(t *testing.T) {
	fields := map[string]any{}
	extractReferences("no refs here").fields(fields)
	if len(fields) != 0 {
		t.Errorf("empty references added fields: %v", fields)
	}

	extractReferences("Closes #9").fields(fields)
	if !reflect.DeepEqual(fields["closes_issues"], []int64{9}) {
		t.Errorf("closes_issues = %v", fields["closes_issues"])
	}
}
