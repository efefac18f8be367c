package service

import (
	"context"
	"errors"

	"mentorcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	requeueBatchSize   = 50
	requeueConcurrency = 4
)

var errPoolExhausted = errors.New("no closer capacity left")

// RequeueUnassigned drains the unassigned queue for an organization after
// closer capacity frees up. Leads are routed highest score first; the
// drain stops as soon as the pool reports no capacity again. Individual
// routing failures are logged and skipped so one bad lead cannot block
// the queue.
func (s *Service) RequeueUnassigned(ctx context.Context, orgID uuid.UUID) error {
	scope, err := s.directory.SystemScope(ctx, orgID)
	if err != nil {
		return err
	}

	queued, err := s.repo.ListUnassigned(ctx, orgID, requeueBatchSize)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to list unassigned leads", err)
	}
	if len(queued) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(requeueConcurrency)

	for _, lead := range queued {
		lead := lead
		g.Go(func() error {
			outcome, err := s.router.AssignLead(ctx, scope, lead.ID, interestTag(lead))
			if err != nil {
				s.log.Error("requeue routing failed", "lead_id", lead.ID, "organization_id", orgID, "error", err)
				return nil
			}
			if outcome.Unassigned {
				return errPoolExhausted
			}
			s.log.Info("queued lead assigned", "lead_id", lead.ID, "closer_id", outcome.CloserID)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errPoolExhausted) {
		return err
	}
	return nil
}
