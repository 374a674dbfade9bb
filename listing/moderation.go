package listing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carlot/models"
)

// StatusChanged 是刊登狀態變更後發佈到審核 stream 的事件
type StatusChanged struct {
	ListingID uuid.UUID            `msgpack:"listing_id"`
	ActorID   uuid.UUID            `msgpack:"actor_id"`
	SellerID  uuid.UUID            `msgpack:"seller_id"`
	From      models.ListingStatus `msgpack:"from"`
	To        models.ListingStatus `msgpack:"to"`
	At        time.Time            `msgpack:"at"`
}

// recordStatusChange 在同一個交易中寫入審核紀錄
func recordStatusChange(tx *gorm.DB, l *models.Listing, actor uuid.UUID, from models.ListingStatus, at time.Time) (*StatusChanged, error) {
	const op = "recordStatusChange"
	payload, err := json.Marshal(map[string]any{
		"title":     l.Title,
		"seller":    l.SellerID,
		"is_active": l.IsActive,
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to marshal payload, err=%w", op, err)
	}
	event := models.ModerationEvent{
		ListingID:  l.ID,
		ActorID:    actor,
		FromStatus: from,
		ToStatus:   l.Status,
		Payload:    datatypes.JSON(payload),
		CreatedAt:  at,
	}
	if err := tx.Create(&event).Error; err != nil {
		return nil, fmt.Errorf("[%s] Fail to create moderation event, err=%w", op, err)
	}
	return &StatusChanged{
		ListingID: l.ID,
		ActorID:   actor,
		SellerID:  l.SellerID,
		From:      from,
		To:        l.Status,
		At:        at,
	}, nil
}

// publish 在交易提交後發佈事件，失敗只記錄日誌
func (s *Service) publish(event *StatusChanged) {
	if event == nil || s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(*event); err != nil {
		s.logger.Error("Fail to publish status change",
			slog.String("listingID", event.ListingID.String()),
			slog.Any("error", err))
	}
}
