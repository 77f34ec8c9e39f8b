// Package models defines the entity types, status vocabularies, and standard
// errors shared by the vault CLI and portal.
package models

import (
	"errors"
	"time"
)

// Standard errors. Callers distinguish these with errors.Is; everything else
// is treated as infrastructure failure.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrNoConnector   = errors.New("no connector found for source")
	ErrMissingAPIKey = errors.New("search API key not configured")
	ErrUnauthorized  = errors.New("unauthorized")
)

// ID prefixes distinguish record kinds so links can point at either side of
// a pair without a type column.
const (
	FindingIDPrefix    = "fnd_"
	ArtifactIDPrefix   = "art_"
	HypothesisIDPrefix = "hyp_"
	MissionIDPrefix    = "mis_"
	WatchIDPrefix      = "wt_"
	BranchIDPrefix     = "br_"
)

// DefaultBranch is the branch every scoped operation falls back to.
const DefaultBranch = "main"

// Project status values.
const (
	ProjectActive    = "active"
	ProjectPaused    = "paused"
	ProjectCompleted = "completed"
	ProjectFailed    = "failed"
)

// IsValidProjectStatus reports whether s is an accepted project status.
func IsValidProjectStatus(s string) bool {
	switch s {
	case ProjectActive, ProjectPaused, ProjectCompleted, ProjectFailed:
		return true
	}
	return false
}

// Hypothesis status values.
const (
	HypothesisOpen     = "open"
	HypothesisAccepted = "accepted"
	HypothesisRejected = "rejected"
	HypothesisArchived = "archived"
)

// IsValidHypothesisStatus reports whether s is an accepted hypothesis status.
func IsValidHypothesisStatus(s string) bool {
	switch s {
	case HypothesisOpen, HypothesisAccepted, HypothesisRejected, HypothesisArchived:
		return true
	}
	return false
}

// Mission status values. A mission moves open -> in_progress -> done, or to
// blocked when the search backend cannot serve it, or back to open on a
// transient failure.
const (
	MissionOpen       = "open"
	MissionInProgress = "in_progress"
	MissionDone       = "done"
	MissionBlocked    = "blocked"
	MissionCancelled  = "cancelled"
)

// IsValidMissionStatus reports whether s is an accepted mission status.
func IsValidMissionStatus(s string) bool {
	switch s {
	case MissionOpen, MissionInProgress, MissionDone, MissionBlocked, MissionCancelled:
		return true
	}
	return false
}

// Watch target types and statuses.
const (
	WatchTypeURL   = "url"
	WatchTypeQuery = "query"

	WatchActive   = "active"
	WatchDisabled = "disabled"
)

// SynthesisLinkType tags links produced by the synthesis engine. Only this
// link type carries a uniqueness constraint on (source, target).
const SynthesisLinkType = "SYNTHESIS_SIMILARITY"

// IsValidConfidence reports whether c is inside the accepted [0,1] range.
func IsValidConfidence(c float64) bool {
	return c >= 0.0 && c <= 1.0
}

// Project is a research mission with a stated objective. Created once via
// init; its id is caller-chosen and never reused.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Objective string    `json:"objective"`
	Status    string    `json:"status"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Branch is an isolated line of reasoning within a project. Every scoped
// record carries a branch id; "main" is created with the project.
type Branch struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Name       string    `json:"name"`
	ParentID   string    `json:"parent_id,omitempty"`
	Hypothesis string    `json:"hypothesis,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event is an append-only audit row. Events are never updated or deleted.
type Event struct {
	ID         int64     `json:"id"`
	ProjectID  string    `json:"project_id"`
	BranchID   string    `json:"branch_id"`
	Type       string    `json:"type"`
	Step       int       `json:"step"`
	Payload    string    `json:"payload"` // JSON blob, scrubbed on write
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Tags       string    `json:"tags"` // comma-separated
	Timestamp  time.Time `json:"timestamp"`
}

// Finding is a persisted, scrubbed unit of research content. Findings are
// superseded by new findings rather than edited in place.
type Finding struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	BranchID   string    `json:"branch_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Evidence   string    `json:"evidence"` // JSON blob, e.g. {"source_url": ...}
	Confidence float64   `json:"confidence"`
	Tags       string    `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}

// Artifact references ingested external content (a file path or URL).
type Artifact struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	BranchID  string    `json:"branch_id"`
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	Metadata  string    `json:"metadata"` // JSON blob, scrubbed on write
	CreatedAt time.Time `json:"created_at"`
}

// Link is a typed pair relationship between two content records. For the
// synthesis link type, SourceID < TargetID lexically, so link identity is
// independent of pass direction.
type Link struct {
	ID        int64     `json:"id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	LinkType  string    `json:"link_type"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Hypothesis is a falsifiable statement attached to a branch.
type Hypothesis struct {
	ID         string    `json:"id"`
	BranchID   string    `json:"branch_id"`
	Branch     string    `json:"branch,omitempty"` // branch name, filled on reads
	Statement  string    `json:"statement"`
	Rationale  string    `json:"rationale,omitempty"`
	Confidence float64   `json:"confidence"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Mission is a planned-then-executed external verification query tied to a
// specific low-confidence finding. DedupHash makes planning idempotent.
type Mission struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	BranchID    string     `json:"branch_id"`
	FindingID   string     `json:"finding_id"`
	Type        string     `json:"type"`
	Query       string     `json:"query"`
	QueryHash   string     `json:"query_hash"`
	Question    string     `json:"question,omitempty"`
	Rationale   string     `json:"rationale,omitempty"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	ResultMeta  string     `json:"result_meta,omitempty"` // JSON blob on completion
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DedupHash   string     `json:"-"`
}

// WatchTarget is a persistent subject for periodic re-checking, deduplicated
// by (project, branch, type, normalized target).
type WatchTarget struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	BranchID       string     `json:"branch_id"`
	Type           string     `json:"type"`
	Target         string     `json:"target"`
	Tags           string     `json:"tags"`
	IntervalSec    int        `json:"interval_s"`
	Status         string     `json:"status"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	LastResultHash string     `json:"-"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DedupHash      string     `json:"-"`
}

// Embedding stores a cached local embedding vector for a finding or artifact.
type Embedding struct {
	EntityType  string
	EntityID    string
	Model       string
	Dims        int
	Vector      []float32
	ContentHash string
	UpdatedAt   time.Time
}
