package model

import "time"

// SectionMember associates a user with a section, and optionally a side.
// An empty Side means the user covers every side of the section.
type SectionMember struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:uk_section_members,priority:1"`
	Section   string `gorm:"not null;uniqueIndex:uk_section_members,priority:2"`
	Side      string `gorm:"not null;default:'';uniqueIndex:uk_section_members,priority:3"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
