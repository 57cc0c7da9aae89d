package session

import (
	"context"
	"fmt"

	"escrowboard/internal/escrow"
)

// Select makes id the escrow whose steps are shown, re-reading its steps.
// When the re-read fails the steps from the last sync are kept.
func (s *Session) Select(ctx context.Context, id uint64) (escrow.Escrow, error) {
	rec, ok := s.find(id)
	if !ok {
		return escrow.Escrow{}, fmt.Errorf("escrow %d: %w", id, ErrEscrowNotFound)
	}

	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()

	if handle != nil {
		steps, err := handle.EscrowSteps(ctx, id)
		if err != nil {
			s.log.WithField("escrow_id", id).WithError(err).Warn("fetch escrow steps")
		} else {
			rec.Steps = steps
		}
	}

	s.mu.Lock()
	s.selected = &rec
	s.mu.Unlock()
	return rec, nil
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}
