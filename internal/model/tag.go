package model

import (
	"time"

	"duty-planner/internal/clock"
)

// Bucket identifies one Tag.
type Bucket struct {
	Day     time.Time
	Side    string
	Section string
}

// Tag is the denormalized counter of one (day, side, section) bucket.
//
// Derivation rule: TaskCount equals the number of task events in the bucket
// whose status is open; each TagInfo.UnreadInfoCount equals the number of
// info events in the bucket that the user has not read. Rows are maintained
// incrementally and can be rebuilt from events by the repair job.
type Tag struct {
	ID         uint       `gorm:"primaryKey"`
	Day        time.Time  `gorm:"not null;uniqueIndex:uk_tags_bucket,priority:1"`
	Side       string     `gorm:"not null;default:'';uniqueIndex:uk_tags_bucket,priority:2"`
	Section    string     `gorm:"not null;uniqueIndex:uk_tags_bucket,priority:3"`
	TaskCount  int        `gorm:"not null;default:0"`
	DateStatus DateStatus `gorm:"not null"`
	ActiveDay  *int
	Infos      []TagInfo `gorm:"foreignKey:TagID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsEmpty reports a tag with nothing outstanding.
func (t *Tag) IsEmpty() bool {
	if t.TaskCount > 0 {
		return false
	}
	for _, info := range t.Infos {
		if info.UnreadInfoCount > 0 {
			return false
		}
	}
	return true
}

func (t *Tag) Bucket() Bucket {
	return Bucket{Day: clock.Day(t.Day), Side: t.Side, Section: t.Section}
}

// TagInfo holds one user's unread info count inside a Tag.
type TagInfo struct {
	ID              uint `gorm:"primaryKey"`
	TagID           uint `gorm:"not null;uniqueIndex:uk_tag_infos_user,priority:1"`
	UserID          uint `gorm:"not null;uniqueIndex:uk_tag_infos_user,priority:2"`
	UnreadInfoCount int  `gorm:"not null;default:0"`
}
