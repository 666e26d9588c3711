package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/docuquery/rag-be/repository"
	"github.com/docuquery/rag-be/types"
)

// DedupService fingerprints content and detects previously ingested
// duplicates. Fingerprint collisions are treated as true duplicates; the hash
// space is assumed collision-free at realistic corpus sizes.
type DedupService struct {
	repo repository.DocumentRepo
}

func NewDedupService(repo repository.DocumentRepo) *DedupService {
	return &DedupService{
		repo: repo,
	}
}

// Fingerprint hashes raw document bytes after whitespace normalization.
func (s *DedupService) Fingerprint(raw []byte) string {
	return FingerprintText(string(raw))
}

// FingerprintText is the hex sha256 of whitespace-collapsed, case-preserved
// content. The same function fingerprints documents and individual chunks.
func FingerprintText(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether another document with the same fingerprint has
// already completed ingestion. excludeID skips the caller's own pending row.
func (s *DedupService) IsDuplicate(ctx context.Context, fingerprint, excludeID string) (string, bool, error) {
	docs, err := s.repo.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return "", false, err
	}
	for _, doc := range docs {
		if doc.ID == excludeID {
			continue
		}
		if doc.Status == types.StatusCompleted {
			return doc.ID, true, nil
		}
	}
	return "", false, nil
}
