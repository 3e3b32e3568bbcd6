package issues

import (
	"context"
	"log/slog"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/issue"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
)

// MergeDuplicates closes every active issue that shares a dedup key with an
// earlier active issue. Running it again after a sweep changes nothing.
func (s *Service) MergeDuplicates(ctx context.Context) (MergeReport, error) {
	if err := s.ready(ctx); err != nil {
		return MergeReport{}, err
	}

	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	unlock, err := s.lock(ctx, issue.MergeLockName)
	if err != nil {
		return MergeReport{}, err
	}
	defer unlock()

	now := issue.FormatTimestamp(s.now())
	report := MergeReport{Groups: []MergeGroup{}}
	var closedIDs []string

	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		active, err := s.repo.ListIssues(txCtx, ports.IssueFilter{
			Statuses: []issue.Status{issue.StatusOpen, issue.StatusInProgress},
			Order:    ports.IssueOrderCreatedAsc,
		})
		if err != nil {
			return err
		}

		order := make([]string, 0, len(active))
		groups := make(map[string][]ports.IssueRecord, len(active))
		for _, record := range active {
			key := issue.DedupKey{Intent: record.Intent, PartID: record.PartID, OrderID: record.OrderID}.String()
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], record)
		}

		for _, key := range order {
			members := groups[key]
			if len(members) < 2 {
				continue
			}

			kept := members[0]
			group := MergeGroup{Kept: kept.IssueID, Closed: make([]string, 0, len(members)-1)}
			note := issue.MergeNote(kept.IssueID)
			for _, dup := range members[1:] {
				if err := s.repo.UpdateIssueStatus(txCtx, ports.IssueStatusUpdate{
					IssueID:         dup.IssueID,
					Status:          issue.StatusClosed,
					UpdatedAt:       now,
					ResolvedAt:      &now,
					ResolutionNotes: &note,
					ClearActiveKey:  true,
				}); err != nil {
					return err
				}
				group.Closed = append(group.Closed, dup.IssueID)
			}

			// The closed duplicate may have held the key; the survivor takes it over.
			if kept.ActiveKey == nil && kept.Intent != issue.IntentManual {
				if _, err := s.repo.SetActiveKey(txCtx, kept.IssueID, key); err != nil {
					return err
				}
			}

			report.Groups = append(report.Groups, group)
			report.Closed += len(group.Closed)
			closedIDs = append(closedIDs, group.Closed...)
		}
		return nil
	})
	if err != nil {
		return MergeReport{}, errs.Unavailable(err, "merge duplicate issues")
	}

	for _, id := range closedIDs {
		s.setCacheBestEffort(ctx, id, issue.StatusClosed)
	}
	logging.Info(
		logging.WithComponent(ctx, "usecase.issues"),
		"duplicate sweep finished",
		slog.Int("groups", len(report.Groups)),
		slog.Int("closed", report.Closed),
	)
	return report, nil
}
