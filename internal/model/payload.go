package model

import "slices"

// Payload is the task-or-info half of an event. Only *TaskPayload and
// *InfoPayload implement it.
type Payload interface {
	Kind() Kind
	Users() []uint
	attach(eventID uint)
}

// TaskPayload is the actionable side of an event.
type TaskPayload struct {
	EventID   uint           `gorm:"primaryKey;autoIncrement:false"`
	Status    TaskStatus     `gorm:"not null;index"`
	IsPending bool           `gorm:"not null;default:false"`
	Assignees []TaskAssignee `gorm:"foreignKey:EventID;references:EventID"`
}

type TaskAssignee struct {
	EventID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID  uint `gorm:"primaryKey;autoIncrement:false"`
}

func NewTaskPayload(status TaskStatus, users []uint) *TaskPayload {
	p := &TaskPayload{Status: status, IsPending: status == TaskPending}
	for _, id := range NewUserIDs(users...) {
		p.Assignees = append(p.Assignees, TaskAssignee{UserID: id})
	}
	return p
}

func (*TaskPayload) Kind() Kind { return KindTask }

func (p *TaskPayload) Users() []uint {
	out := make([]uint, 0, len(p.Assignees))
	for _, a := range p.Assignees {
		out = append(out, a.UserID)
	}
	return out
}

func (p *TaskPayload) attach(eventID uint) {
	p.EventID = eventID
	for i := range p.Assignees {
		p.Assignees[i].EventID = eventID
	}
}

// InfoPayload is a notice shared with a set of users who each acknowledge it.
type InfoPayload struct {
	EventID         uint          `gorm:"primaryKey;autoIncrement:false"`
	IsFullyRead     bool          `gorm:"not null;default:false"`
	SharedWithCount int           `gorm:"not null;default:0"`
	Receipts        []ReadReceipt `gorm:"foreignKey:EventID;references:EventID"`
}

type ReadReceipt struct {
	EventID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID  uint `gorm:"primaryKey;autoIncrement:false"`
	IsRead  bool `gorm:"not null;default:false"`
}

// NewInfoPayload shares a notice, unread, with users.
func NewInfoPayload(users []uint) *InfoPayload {
	ids := NewUserIDs(users...)
	p := &InfoPayload{SharedWithCount: len(ids), IsFullyRead: len(ids) == 0}
	for _, id := range ids {
		p.Receipts = append(p.Receipts, ReadReceipt{UserID: id})
	}
	return p
}

func (*InfoPayload) Kind() Kind { return KindInfo }

func (p *InfoPayload) Users() []uint {
	out := make([]uint, 0, len(p.Receipts))
	for _, r := range p.Receipts {
		out = append(out, r.UserID)
	}
	return out
}

// UnreadUsers lists users who have not read the notice yet.
func (p *InfoPayload) UnreadUsers() []uint {
	var out []uint
	for _, r := range p.Receipts {
		if !r.IsRead {
			out = append(out, r.UserID)
		}
	}
	return out
}

// MarkRead records that userID read the notice. It returns false when the
// user is not a recipient or had already read it.
func (p *InfoPayload) MarkRead(userID uint) bool {
	i := slices.IndexFunc(p.Receipts, func(r ReadReceipt) bool { return r.UserID == userID })
	if i < 0 || p.Receipts[i].IsRead {
		return false
	}
	p.Receipts[i].IsRead = true
	p.IsFullyRead = len(p.UnreadUsers()) == 0
	return true
}

func (p *InfoPayload) attach(eventID uint) {
	p.EventID = eventID
	for i := range p.Receipts {
		p.Receipts[i].EventID = eventID
	}
}
