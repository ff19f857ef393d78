package messaging

import (
	"sort"

	"github.com/givebridge/messaging/internal/models"
)

// DeriveSummaries reconstructs per-counterpart conversation summaries
// from a flat message collection, for backends that only expose raw
// inbox/sent lists. It performs no I/O.
//
// The latest message per counterpart is picked strictly by created_at;
// on equal timestamps the earlier-seen message keeps its place, so
// input order decides ties. Summaries come back sorted by last activity,
// newest first.
func DeriveSummaries(viewerID int64, messages []models.Message) []models.ConversationSummary {
	byCounterpart := make(map[int64]*models.ConversationSummary)
	var order []int64

	for _, m := range messages {
		otherID := m.CounterpartID(viewerID)

		summary, ok := byCounterpart[otherID]
		if !ok {
			summary = &models.ConversationSummary{
				OtherUser: models.UserRef{ID: otherID},
			}
			byCounterpart[otherID] = summary
			order = append(order, otherID)
		}

		if summary.LatestMessage.ID == 0 || m.CreatedAt.After(summary.LatestMessage.CreatedAt) {
			summary.LatestMessage = m
			summary.LastActivity = m.CreatedAt
		}

		// Snapshot may be missing on partial data; keep whatever a
		// message in the group carries.
		if summary.OtherUser.Name == "" {
			if ref := m.Counterpart(viewerID); ref != nil {
				summary.OtherUser = *ref
			}
		}

		if m.ReceiverID == viewerID && m.Status == models.StatusUnread {
			summary.UnreadCount++
		}
	}

	summaries := make([]models.ConversationSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byCounterpart[id])
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})

	return summaries
}
