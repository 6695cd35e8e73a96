package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bookable-app/bookable/services/business-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type userRegistered struct {
	UserID      string `json:"user_id"`
	BusinessID  string `json:"business_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// NewRegistrationHandler projects team-member signups into staff rows so the
// owner sees new members without a manual step. Owner signups seed the
// business profile; customer signups are ignored.
func NewRegistrationHandler(logger *slog.Logger, repo *storage.Repository) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt userRegistered
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode user registered event: %w", err)
		}

		switch evt.Role {
		case "owner":
			if _, err := repo.GetOrCreateProfile(ctx, evt.BusinessID); err != nil {
				return fmt.Errorf("seed business profile: %w", err)
			}
			logger.Info("business profile seeded", "business_id", evt.BusinessID)
		case "team":
			name := evt.DisplayName
			if name == "" {
				name = evt.Email
			}
			id, err := repo.CreateStaff(ctx, evt.BusinessID, evt.UserID, name, evt.Email)
			if err != nil {
				return fmt.Errorf("create staff for registered user: %w", err)
			}
			logger.Info("staff created from registration", "staff_id", id, "business_id", evt.BusinessID)
		}
		return nil
	}
}
