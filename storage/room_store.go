package storage

import (
	"context"
	"errors"
	"time"

	"github.com/revieqt/TaraG-v2-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomStore is the persistence boundary of the room membership engine.
// Membership mutations are targeted row updates rather than
// whole-room writes, so concurrent admins working on different members
// of the same room do not clobber each other.
type RoomStore interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	FindByMember(ctx context.Context, userID uint, status string) ([]models.Room, error)
	UpdateFields(ctx context.Context, roomID uint, fields map[string]interface{}) error
	AddMember(ctx context.Context, member *models.RoomMember) error
	UpdateMemberStatus(ctx context.Context, roomID, userID uint, fromStatus, toStatus string, joinedOn time.Time) (bool, error)
	UpdateMemberNickname(ctx context.Context, roomID, userID uint, nickname *string) (bool, error)
	RemoveMember(ctx context.Context, roomID, userID uint) (roomDeleted bool, err error)
}

// GormRoomStore implements RoomStore on Postgres. The unique index on
// rooms.invite_code is the actual uniqueness guarantor for codes; the
// generation loop in the service only retries on the translated
// duplicate-key error.
type GormRoomStore struct {
	db *gorm.DB
}

func NewRoomStore(db *gorm.DB) *GormRoomStore {
	return &GormRoomStore{db: db}
}

func (s *GormRoomStore) Create(ctx context.Context, room *models.Room) error {
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateInviteCode
		}
		return err
	}
	return nil
}

func (s *GormRoomStore) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("room_members.id")
		}).
		First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (s *GormRoomStore) FindByMember(ctx context.Context, userID uint, status string) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).
		Joins("JOIN room_members m ON m.room_id = rooms.id").
		Where("m.user_id = ? AND m.status = ?", userID, status).
		Preload("Members").
		Order("rooms.created_on DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *GormRoomStore) UpdateFields(ctx context.Context, roomID uint, fields map[string]interface{}) error {
	fields["updated_on"] = time.Now()
	res := s.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", roomID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *GormRoomStore) AddMember(ctx context.Context, member *models.RoomMember) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateMember
			}
			return err
		}
		return tx.Model(&models.Room{}).Where("id = ?", member.RoomID).
			Update("updated_on", time.Now()).Error
	})
}

// UpdateMemberStatus transitions a membership from one status to
// another in a single guarded update. It reports false when no row
// matched, which covers both a missing member and a lost race on the
// expected status.
func (s *GormRoomStore) UpdateMemberStatus(ctx context.Context, roomID, userID uint, fromStatus, toStatus string, joinedOn time.Time) (bool, error) {
	var updated bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RoomMember{}).
			Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, fromStatus).
			Updates(map[string]interface{}{"status": toStatus, "joined_on": joinedOn})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = true
		return tx.Model(&models.Room{}).Where("id = ?", roomID).
			Update("updated_on", time.Now()).Error
	})
	return updated, err
}

func (s *GormRoomStore) UpdateMemberNickname(ctx context.Context, roomID, userID uint, nickname *string) (bool, error) {
	var updated bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RoomMember{}).
			Where("room_id = ? AND user_id = ?", roomID, userID).
			Update("nickname", nickname)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = true
		return tx.Model(&models.Room{}).Where("id = ?", roomID).
			Update("updated_on", time.Now()).Error
	})
	return updated, err
}

// RemoveMember deletes a membership row and, when it was the last one,
// the room itself. The room row is locked for the duration so the
// membership count the decision is based on cannot change underneath.
func (s *GormRoomStore) RemoveMember(ctx context.Context, roomID, userID uint) (bool, error) {
	roomDeleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		res := tx.Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&models.RoomMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMemberNotFound
		}

		var remaining int64
		if err := tx.Model(&models.RoomMember{}).Where("room_id = ?", roomID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			roomDeleted = true
			return tx.Delete(&models.Room{}, roomID).Error
		}
		return tx.Model(&models.Room{}).Where("id = ?", roomID).
			Update("updated_on", time.Now()).Error
	})
	return roomDeleted, err
}
