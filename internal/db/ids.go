package db

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/marcus/vault/internal/models"
)

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// safeIDPart normalizes a name for use inside a deterministic id.
func safeIDPart(s string) string {
	return unsafeIDChars.ReplaceAllString(strings.TrimSpace(s), "_")
}

// branchIDFor builds the deterministic branch id for a project/name pair.
// The same pair always yields the same id, which is what makes the main
// branch addressable without a lookup.
func branchIDFor(projectID, name string) string {
	return fmt.Sprintf("%s%s_%s", models.BranchIDPrefix, safeIDPart(projectID), safeIDPart(name))
}

func randomHex(n int) string {
	h := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}

func newFindingID() string  { return models.FindingIDPrefix + randomHex(8) }
func newArtifactID() string { return models.ArtifactIDPrefix + randomHex(10) }
func newHypothesisID() string {
	return models.HypothesisIDPrefix + randomHex(10)
}
func newMissionID() string { return models.MissionIDPrefix + randomHex(10) }
func newWatchID() string   { return models.WatchIDPrefix + randomHex(10) }
