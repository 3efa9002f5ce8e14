package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CurrentSchemaVersion is written on every new report. Documents without a
// version predate upvotes/comments and carry an optional severity instead.
const CurrentSchemaVersion = 2

type Status string

const (
	StatusReported   Status = "Reported"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

type Severity string

const (
	SeverityMinor    Severity = "Minor"
	SeverityMajor    Severity = "Major"
	SeveritySevere   Severity = "Severe"
	SeverityCritical Severity = "Critical"
)

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeveritySevere, SeverityCritical:
		return true
	}
	return false
}

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(longitude, latitude float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{longitude, latitude}}
}

func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Comment is embedded in its pothole and has no lifecycle of its own.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Pothole is a single report as stored in the potholes collection.
type Pothole struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	SchemaVersion int                  `bson:"schemaVersion,omitempty" json:"-"`
	Location      GeoPoint             `bson:"location" json:"location"`
	ImageURL      string               `bson:"imageUrl" json:"imageUrl"`
	Description   string               `bson:"description,omitempty" json:"description,omitempty"`
	Status        Status               `bson:"status" json:"status"`
	Severity      Severity             `bson:"severity,omitempty" json:"severity,omitempty"`
	Address       string               `bson:"address,omitempty" json:"address,omitempty"`
	ReportedBy    *primitive.ObjectID  `bson:"reportedBy,omitempty" json:"reportedBy,omitempty"`
	Upvotes       []primitive.ObjectID `bson:"upvotes" json:"upvotes"`
	Comments      []Comment            `bson:"comments" json:"comments"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Normalize upgrades a document read from the store to the current schema:
// missing arrays become empty and a missing status becomes Reported.
// It returns true when anything changed.
func (p *Pothole) Normalize() bool {
	changed := false
	if p.Upvotes == nil {
		p.Upvotes = []primitive.ObjectID{}
		changed = true
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
		changed = true
	}
	if p.Status == "" {
		p.Status = StatusReported
		changed = true
	}
	if p.Location.Type == "" && len(p.Location.Coordinates) == 2 {
		p.Location.Type = "Point"
		changed = true
	}
	if p.SchemaVersion < CurrentSchemaVersion {
		p.SchemaVersion = CurrentSchemaVersion
		changed = true
	}
	return changed
}

// HasUpvote reports whether userID is in the upvote set.
func (p *Pothole) HasUpvote(userID primitive.ObjectID) bool {
	for _, id := range p.Upvotes {
		if id == userID {
			return true
		}
	}
	return false
}
