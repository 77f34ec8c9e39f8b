// Package ingest turns external sources into stored findings through a
// registry of source-specific connectors.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
)

// ArtifactDraft is what a connector extracts before anything is persisted.
type ArtifactDraft struct {
	Title      string
	Content    string
	SourceURL  string
	Confidence float64
	Tags       []string
	Metadata   map[string]any
}

// Connector handles one family of sources.
type Connector interface {
	// Name identifies the connector in events and logs.
	Name() string
	// CanHandle reports whether this connector claims the source.
	CanHandle(source string) bool
	// Fetch extracts content from a claimed source.
	Fetch(ctx context.Context, source string) (*ArtifactDraft, error)
}

// Result reports a completed ingestion.
type Result struct {
	FindingID  string  `json:"finding_id"`
	Connector  string  `json:"connector"`
	Title      string  `json:"title"`
	SourceURL  string  `json:"source_url"`
	Confidence float64 `json:"confidence"`
}

// Service routes sources to connectors and persists what they extract.
type Service struct {
	store      *db.DB
	connectors []Connector
}

// NewService builds a service with the default connector set. Registration
// order matters: the first connector whose CanHandle accepts the source wins.
func NewService(store *db.DB) *Service {
	s := &Service{store: store}
	s.Register(NewVideoConnector())
	s.Register(NewEncyclopediaConnector())
	s.Register(NewSocialConnector())
	s.Register(NewWebConnector())
	return s
}

// Register appends a connector to the routing order.
func (s *Service) Register(c Connector) {
	s.connectors = append(s.connectors, c)
}

// Ingest fetches a source and stores the extracted content as a finding on
// the given branch, with an audit event. A source no connector claims fails
// with models.ErrNoConnector; fetch failures keep the connector's error.
func (s *Service) Ingest(ctx context.Context, projectID, branch, source string) (*Result, error) {
	var conn Connector
	for _, c := range s.connectors {
		if c.CanHandle(source) {
			conn = c
			break
		}
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrNoConnector, source)
	}

	draft, err := conn.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", conn.Name(), err)
	}

	evidence := map[string]any{"source_url": draft.SourceURL, "connector": conn.Name()}
	for k, v := range draft.Metadata {
		evidence[k] = v
	}
	f, err := s.store.AddFinding(projectID, branch, draft.Title, draft.Content,
		evidence, draft.Confidence, joinTags(draft.Tags))
	if err != nil {
		return nil, err
	}

	res := &Result{
		FindingID:  f.ID,
		Connector:  conn.Name(),
		Title:      f.Title,
		SourceURL:  draft.SourceURL,
		Confidence: draft.Confidence,
	}
	if _, err := s.store.AppendEvent(projectID, branch, "INGEST", 0, res, draft.Confidence, conn.Name(), f.Tags); err != nil {
		return nil, err
	}
	return res, nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}
