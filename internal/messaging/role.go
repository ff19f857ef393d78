package messaging

import "github.com/givebridge/messaging/internal/models"

// Labels are the role-specific strings the messaging views display.
type Labels struct {
	Title              string
	ConversationsEmpty string
	InboxEmpty         string
	SentEmpty          string
	ComposePlaceholder string
}

// RoleConfig parameterizes one controller for both platform roles. The
// donor and recipient tabs share every behavior; only labels differ.
type RoleConfig struct {
	Role   models.Role
	Labels Labels
}

// DonorConfig is the messaging configuration for the donor dashboard.
func DonorConfig() RoleConfig {
	return RoleConfig{
		Role: models.RoleDonor,
		Labels: Labels{
			Title:              "Messages",
			ConversationsEmpty: "No conversations yet. Reach out on a help request to start one.",
			InboxEmpty:         "No messages received yet.",
			SentEmpty:          "You haven't sent any messages yet.",
			ComposePlaceholder: "Write a reply to the recipient...",
		},
	}
}

// RecipientConfig is the messaging configuration for the recipient
// dashboard.
func RecipientConfig() RoleConfig {
	return RoleConfig{
		Role: models.RoleRecipient,
		Labels: Labels{
			Title:              "Messages",
			ConversationsEmpty: "No conversations yet. Donors who respond to your requests appear here.",
			InboxEmpty:         "No messages received yet.",
			SentEmpty:          "You haven't sent any messages yet.",
			ComposePlaceholder: "Write a reply to the donor...",
		},
	}
}
