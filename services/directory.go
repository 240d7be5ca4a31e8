package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/revieqt/TaraG-v2-backend/models"
	"github.com/revieqt/TaraG-v2-backend/storage"
	"gorm.io/gorm"
)

// Username lookups only enrich responses, so they are cached briefly
// and every cache failure is swallowed.
const usernameCacheTTL = 10 * time.Minute

// UserDirectory resolves user ids for membership operations.
type UserDirectory interface {
	Exists(ctx context.Context, id uint) (bool, error)
	Usernames(ctx context.Context, ids []uint) (map[uint]string, error)
}

// ItinerarySummary is the slice of an itinerary the room subsystem
// shows alongside a room.
type ItinerarySummary struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// ItineraryDirectory resolves itinerary ids for attachment and
// response enrichment.
type ItineraryDirectory interface {
	Summary(ctx context.Context, id uint) (*ItinerarySummary, error)
}

// DBUserDirectory reads the users table with a Redis username cache in
// front of it.
type DBUserDirectory struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewUserDirectory(db *gorm.DB, cache *redis.Client) *DBUserDirectory {
	return &DBUserDirectory{db: db, cache: cache}
}

func (d *DBUserDirectory) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func usernameCacheKey(id uint) string {
	return fmt.Sprintf("username:%d", id)
}

// Usernames returns a username per resolvable id. Ids without a user
// row are simply absent from the result; callers fall back to a
// placeholder.
func (d *DBUserDirectory) Usernames(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	missing := ids
	if d.cache != nil {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = usernameCacheKey(id)
		}
		if vals, err := d.cache.MGet(ctx, keys...).Result(); err == nil {
			missing = make([]uint, 0, len(ids))
			for i, v := range vals {
				if name, ok := v.(string); ok && name != "" {
					out[ids[i]] = name
				} else {
					missing = append(missing, ids[i])
				}
			}
		} else {
			log.Printf("username cache read failed: %v", err)
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	var users []models.User
	err := d.db.WithContext(ctx).
		Select("id, username").
		Where("id IN ?", missing).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		out[u.ID] = u.Username
		if d.cache != nil {
			if err := d.cache.Set(ctx, usernameCacheKey(u.ID), u.Username, usernameCacheTTL).Err(); err != nil {
				log.Printf("username cache write failed: %v", err)
			}
		}
	}
	return out, nil
}

// DBItineraryDirectory reads the itineraries table.
type DBItineraryDirectory struct {
	db *gorm.DB
}

func NewItineraryDirectory(db *gorm.DB) *DBItineraryDirectory {
	return &DBItineraryDirectory{db: db}
}

func (d *DBItineraryDirectory) Summary(ctx context.Context, id uint) (*ItinerarySummary, error) {
	var itinerary models.Itinerary
	err := d.db.WithContext(ctx).
		Select("id, title, start_date, end_date").
		First(&itinerary, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrItineraryNotFound
		}
		return nil, err
	}
	return &ItinerarySummary{
		ID:        itinerary.ID,
		Title:     itinerary.Title,
		StartDate: itinerary.StartDate,
		EndDate:   itinerary.EndDate,
	}, nil
}
