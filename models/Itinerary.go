package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Itinerary statuses.
const (
	ItineraryStatusUpcoming  = "upcoming"
	ItineraryStatusOngoing   = "ongoing"
	ItineraryStatusCompleted = "completed"
	ItineraryStatusCancelled = "cancelled"
)

// Itinerary is a trip plan a room can be attached to. The room
// subsystem only reads title and date range; the rest belongs to the
// itinerary module.
type Itinerary struct {
	gorm.Model
	UserID      uint      `json:"userID" gorm:"not null;index"`
	Title       string    `json:"title" gorm:"size:120;not null"`
	Type        string    `json:"type" gorm:"size:40"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Status      string    `json:"status" gorm:"size:16;index"`

	// PlanDaily selects the shape of Locations: false stores a flat
	// location list, true stores per-day plans. Decode through
	// LocationSet, never as a raw blob.
	PlanDaily bool           `json:"planDaily"`
	Locations datatypes.JSON `json:"locations"`
}

// Address is an optional reverse-geocoded breakdown of a location.
type Address struct {
	Country      string `json:"country,omitempty"`
	Region       string `json:"region,omitempty"`
	Province     string `json:"province,omitempty"`
	City         string `json:"city,omitempty"`
	District     string `json:"district,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

// Location is a single stop on an itinerary.
type Location struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	LocationName string   `json:"locationName"`
	Address      *Address `json:"address,omitempty"`
	Note         string   `json:"note"`
}

// DayPlan groups locations under a date for daily-planned itineraries.
type DayPlan struct {
	Date      time.Time  `json:"date"`
	Locations []Location `json:"locations"`
}

// LocationSet is the decoded form of Itinerary.Locations: either a
// flat list or a per-day grouping, never both.
type LocationSet struct {
	Daily   bool
	General []Location
	Days    []DayPlan
}

// LocationSet decodes the stored locations payload according to the
// PlanDaily flag.
func (i *Itinerary) LocationSet() (*LocationSet, error) {
	set := &LocationSet{Daily: i.PlanDaily}
	if len(i.Locations) == 0 {
		return set, nil
	}
	if i.PlanDaily {
		if err := json.Unmarshal(i.Locations, &set.Days); err != nil {
			return nil, err
		}
		return set, nil
	}
	if err := json.Unmarshal(i.Locations, &set.General); err != nil {
		return nil, err
	}
	return set, nil
}

// SetLocations encodes the given set into the Locations column and
// keeps the PlanDaily flag in sync with its shape.
func (i *Itinerary) SetLocations(set LocationSet) error {
	var (
		raw []byte
		err error
	)
	if set.Daily {
		raw, err = json.Marshal(set.Days)
	} else {
		raw, err = json.Marshal(set.General)
	}
	if err != nil {
		return err
	}
	i.PlanDaily = set.Daily
	i.Locations = raw
	return nil
}
