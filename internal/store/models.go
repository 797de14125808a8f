package store

import (
	"time"

	"kith/api/internal/channel"
)

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Person struct {
	ID         string
	UserID     string
	FirstName  string
	MiddleName string
	LastName   string
	Title      string
	AvatarKey  string
	ImportedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName joins the non-empty name parts with single spaces.
func (p Person) FullName() string {
	name := p.FirstName
	if p.MiddleName != "" {
		name += " " + p.MiddleName
	}
	if p.LastName != "" {
		name += " " + p.LastName
	}
	return name
}

// ChannelRow is one persisted phone or email entry. Position inside the
// per-person list is carried by SortOrder; CreatedAt breaks ties on read.
type ChannelRow struct {
	Prefix    string
	Value     string
	Type      channel.Type
	Preferred bool
}

// ChannelSet groups a person's phones and emails in stored order.
type ChannelSet struct {
	Phones []ChannelRow
	Emails []ChannelRow
}

type SocialRow struct {
	Platform    string
	Handle      string
	ConnectedAt *time.Time
}

type Group struct {
	ID          string
	UserID      string
	Name        string
	MemberCount int
	CreatedAt   time.Time
}

type Activity struct {
	ID         string
	UserID     string
	PersonID   string
	Kind       string
	Note       string
	HappenedAt time.Time
	CreatedAt  time.Time
}
