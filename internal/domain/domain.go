package domain

import "time"

type Email = string
type Uuid = string

// Access levels. AccessLevel is the single source of truth for content
// visibility: -1 never receives any content at all.
const (
	LevelBlocked = -1
	LevelPublic  = 0
	LevelVip     = 5 // display cap, higher values are still valid tiers
)

type User struct {
	Uuid        Uuid
	Email       Email // empty when the visitor never identified themselves
	Name        string
	AccessLevel int
	Notes       string
	CreatedAt   time.Time
	LastSeen    time.Time
}

// Blocked reports whether the user must see no content at all.
func (u User) Blocked() bool {
	return u.AccessLevel == LevelBlocked
}

// DisplayLevel is the tier shown in admin listings. Levels above VIP are
// valid grants but render capped at 5.
func (u User) DisplayLevel() int {
	if u.AccessLevel > LevelVip {
		return LevelVip
	}
	return u.AccessLevel
}

type BlacklistEntry struct {
	Email     Email
	Reason    string
	Timestamp time.Time
}

// Request types accepted by the submission endpoint.
const (
	RequestResume        = "resume"
	RequestContact       = "contact"
	RequestAccessRequest = "access_request"
)

// Request is an inbound visitor submission (contact form, resume request,
// access request).
type Request struct {
	Email   Email
	Name    string
	Message string
	Company string
	Type    string
}

// AccessLogEntry is one row of the append-only audit log.
type AccessLogEntry struct {
	Uuid      Uuid
	Email     Email
	Name      string
	IP        string
	UserAgent string
	Payload   string
	Timestamp time.Time
}
