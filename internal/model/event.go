package model

import (
	"strconv"
	"strings"
	"time"
)

// EventKind is the normalized classification of an inbound webhook.
type EventKind string

const (
	KindPush         EventKind = "push"
	KindMergeRequest EventKind = "merge request"
	KindIssue        EventKind = "issue"
	KindPipeline     EventKind = "pipeline"
	KindJob          EventKind = "job"
)

// Event is a parsed webhook event. The set of implementations is closed:
// *PushEvent, *MergeRequestEvent and *IssueEvent, each built by its parser.
type Event interface {
	Kind() EventKind
	ProjectID() int64
	PrimaryID() string
	sealed()
}

// WebhookEnvelope is an inbound notification as received by the HTTP endpoint.
type WebhookEnvelope struct {
	EventKind  string
	RawPayload []byte
	RequestID  string
	ReceivedAt time.Time
}

// Project is the project block shared by all GitLab hook payloads.
type Project struct {
	ID                int64  `json:"id"`
	Name              string `json:"name,omitempty"`
	PathWithNamespace string `json:"path_with_namespace,omitempty"`
	WebURL            string `json:"web_url,omitempty"`
	DefaultBranch     string `json:"default_branch,omitempty"`
}

// User is the actor block of merge request and issue hooks.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Commit struct {
	ID        string       `json:"id"`
	Message   string       `json:"message"`
	Title     string       `json:"title,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
	URL       string       `json:"url,omitempty"`
	Author    CommitAuthor `json:"author"`
	Added     []string     `json:"added,omitempty"`
	Modified  []string     `json:"modified,omitempty"`
	Removed   []string     `json:"removed,omitempty"`
}

// PushEvent is a branch or tag push.
type PushEvent struct {
	ObjectKind        string   `json:"object_kind"`
	Before            string   `json:"before,omitempty"`
	After             string   `json:"after,omitempty"`
	Ref               string   `json:"ref"`
	CheckoutSHA       string   `json:"checkout_sha,omitempty"`
	UserID            int64    `json:"user_id,omitempty"`
	UserName          string   `json:"user_name,omitempty"`
	UserUsername      string   `json:"user_username,omitempty"`
	UserEmail         string   `json:"user_email,omitempty"`
	ProjectIDValue    int64    `json:"project_id"`
	Project           Project  `json:"project"`
	Commits           []Commit `json:"commits"`
	TotalCommitsCount int      `json:"total_commits_count"`
}

func (e *PushEvent) Kind() EventKind { return KindPush }

func (e *PushEvent) ProjectID() int64 {
	if e.ProjectIDValue != 0 {
		return e.ProjectIDValue
	}
	return e.Project.ID
}

// PrimaryID is the checked-out sha, or the after sha for pushes that
// carry none (branch deletion).
func (e *PushEvent) PrimaryID() string {
	if e.CheckoutSHA != "" {
		return e.CheckoutSHA
	}
	return e.After
}

// Branch returns the ref without the refs/heads/ prefix.
func (e *PushEvent) Branch() string {
	return strings.TrimPrefix(e.Ref, "refs/heads/")
}

// IsMergeCommitPush reports whether the push carries exactly one commit
// whose message starts with "Merge".
func (e *PushEvent) IsMergeCommitPush() bool {
	return len(e.Commits) == 1 && strings.HasPrefix(e.Commits[0].Message, "Merge")
}

func (e *PushEvent) sealed() {}

// Merge request states.
const (
	MergeRequestOpened = "opened"
	MergeRequestMerged = "merged"
	MergeRequestClosed = "closed"
	MergeRequestLocked = "locked"
)

type MergeRequestAttributes struct {
	ID              int64  `json:"id"`
	IID             int64  `json:"iid"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	State           string `json:"state"`
	Action          string `json:"action,omitempty"`
	MergeStatus     string `json:"merge_status,omitempty"`
	SourceBranch    string `json:"source_branch,omitempty"`
	TargetBranch    string `json:"target_branch,omitempty"`
	SourceProjectID int64  `json:"source_project_id,omitempty"`
	TargetProjectID int64  `json:"target_project_id,omitempty"`
	MergeCommitSHA  string `json:"merge_commit_sha,omitempty"`
	AuthorID        int64  `json:"author_id,omitempty"`
	AssigneeID      int64  `json:"assignee_id,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
	URL             string `json:"url,omitempty"`
}

type MergeRequestEvent struct {
	ObjectKind       string                 `json:"object_kind"`
	User             User                   `json:"user"`
	Project          Project                `json:"project"`
	ObjectAttributes MergeRequestAttributes `json:"object_attributes"`
}

func (e *MergeRequestEvent) Kind() EventKind { return KindMergeRequest }

func (e *MergeRequestEvent) ProjectID() int64 {
	if e.Project.ID != 0 {
		return e.Project.ID
	}
	return e.ObjectAttributes.TargetProjectID
}

func (e *MergeRequestEvent) PrimaryID() string {
	if e.ObjectAttributes.ID == 0 {
		return ""
	}
	return strconv.FormatInt(e.ObjectAttributes.ID, 10)
}

func (e *MergeRequestEvent) IsMerged() bool {
	return e.ObjectAttributes.State == MergeRequestMerged
}

func (e *MergeRequestEvent) sealed() {}

// Issue states.
const (
	IssueOpened   = "opened"
	IssueClosed   = "closed"
	IssueReopened = "reopened"
)

type Label struct {
	ID    int64  `json:"id,omitempty"`
	Title string `json:"title"`
}

type IssueAttributes struct {
	ID          int64  `json:"id"`
	IID         int64  `json:"iid"`
	ProjectID   int64  `json:"project_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	State       string `json:"state"`
	Action      string `json:"action,omitempty"`
	AuthorID    int64  `json:"author_id,omitempty"`
	AssigneeID  int64  `json:"assignee_id,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	ClosedAt    string `json:"closed_at,omitempty"`
	URL         string `json:"url,omitempty"`
}

type IssueEvent struct {
	ObjectKind       string          `json:"object_kind"`
	User             User            `json:"user"`
	Project          Project         `json:"project"`
	ObjectAttributes IssueAttributes `json:"object_attributes"`
	Labels           []Label         `json:"labels,omitempty"`
}

func (e *IssueEvent) Kind() EventKind { return KindIssue }

func (e *IssueEvent) ProjectID() int64 {
	if e.Project.ID != 0 {
		return e.Project.ID
	}
	return e.ObjectAttributes.ProjectID
}

func (e *IssueEvent) PrimaryID() string {
	if e.ObjectAttributes.ID == 0 {
		return ""
	}
	return strconv.FormatInt(e.ObjectAttributes.ID, 10)
}

func (e *IssueEvent) IsClosed() bool {
	return e.ObjectAttributes.State == IssueClosed
}

func (e *IssueEvent) sealed() {}
