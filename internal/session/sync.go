package session

import (
	"context"
	"fmt"

	"escrowboard/internal/escrow"
)

const maxPrealloc = 1024

// Refresh re-reads every escrow and replaces the session's list. A failed
// count read aborts with a notification; a failed per-escrow read is logged
// and that escrow is left out. A cancelled ctx aborts the sync and keeps the
// previous list.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()
	if handle == nil {
		return ErrNotConnected
	}

	s.beginLoading()
	defer s.endLoading()

	count, err := handle.EscrowCount(ctx)
	if err != nil {
		s.log.WithError(err).Error("fetch escrow count")
		s.recorder.ObserveSync("failed", 0, 0)
		s.notifier.Error(msgFetchFailed)
		return fmt.Errorf("escrow count: %w", err)
	}

	list := make([]escrow.Escrow, 0, min(count, maxPrealloc))
	skipped := 0
	for id := uint64(0); id < count; id++ {
		rec, err := fetchEscrow(ctx, handle, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.log.WithField("escrow_id", id).WithError(ctxErr).Warn("escrow sync aborted")
				s.recorder.ObserveSync("canceled", 0, 0)
				return fmt.Errorf("refresh: %w", ctxErr)
			}
			s.log.WithField("escrow_id", id).WithError(err).Error("fetch escrow")
			skipped++
			continue
		}
		list = append(list, rec)
	}

	s.mu.Lock()
	s.escrows = list
	hooks := append([]SyncHook(nil), s.syncHooks...)
	s.mu.Unlock()

	s.recorder.ObserveSync("ok", len(list), skipped)
	s.log.WithField("escrows", len(list)).WithField("skipped", skipped).Debug("escrows synchronized")

	for _, hook := range hooks {
		if err := hook(ctx, list); err != nil {
			s.log.WithError(err).Warn("sync hook")
		}
	}
	return nil
}

func fetchEscrow(ctx context.Context, handle escrow.Client, id uint64) (escrow.Escrow, error) {
	rec, err := handle.Escrow(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	steps, err := handle.EscrowSteps(ctx, id)
	if err != nil {
		return escrow.Escrow{}, err
	}
	rec.ID = id
	rec.Steps = steps
	return rec, nil
}
