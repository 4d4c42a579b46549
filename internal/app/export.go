package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
)

// ExportVersion is bumped when the document layout changes.
const ExportVersion = 1

// ExportDocument carries one player's profile between installations.
type ExportDocument struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Profile    profile.Profile `json:"profile"`
}

// Export snapshots a player's profile, default if none is stored.
func (s *Service) Export(ctx context.Context, playerID string) (ExportDocument, error) {
	p, err := s.Profile(ctx, playerID)
	if err != nil {
		return ExportDocument{}, err
	}
	return ExportDocument{Version: ExportVersion, ExportedAt: time.Now().UTC(), Profile: p}, nil
}

// Import stores doc's profile. Without overwrite an existing profile wins
// and ErrProfileExists is returned. The profile is normalized by the tracker
// first, so histories are trimmed and focus areas recomputed; severities were
// already clamped while decoding.
func (s *Service) Import(ctx context.Context, doc ExportDocument, overwrite bool) (profile.Profile, error) {
	if doc.Version != ExportVersion {
		return profile.Profile{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidExport, doc.Version)
	}
	if err := validPlayerID(doc.Profile.PlayerID); err != nil {
		return profile.Profile{}, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}
	if !doc.Profile.SkillLevel.Valid() {
		return profile.Profile{}, fmt.Errorf("%w: skill level %q", ErrInvalidExport, doc.Profile.SkillLevel)
	}
	p, err := s.tracker.Normalize(doc.Profile)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = time.Now().UTC()

	err = s.locks.with(p.PlayerID, func() error {
		_, created, err := s.load(ctx, p.PlayerID)
		if err != nil {
			return err
		}
		if !created && !overwrite {
			return ErrProfileExists
		}
		return s.save(ctx, p, created)
	})
	if err != nil {
		return profile.Profile{}, err
	}
	s.logger.Info(ctx, "profile imported", logger.PlayerID(p.PlayerID), logger.Bool("overwrite", overwrite))
	return p, nil
}
