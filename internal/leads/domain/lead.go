package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scores holds the four sub-scores and their weighted aggregate, each in [0,100].
type Scores struct {
	Engagement         int `json:"engagement"`
	Intent             int `json:"intent"`
	Quality            int `json:"quality"`
	ProbabilityToClose int `json:"probabilityToClose"`
	Overall            int `json:"overall"`
}

// Priority labels the overall score.
func (s Scores) Priority() Priority {
	return PriorityFor(s.Overall)
}

// Lead is a prospective customer created from an AI rendering session.
type Lead struct {
	ID                   uuid.UUID
	UserID               *uuid.UUID
	Name                 *string
	Email                *string
	Phone                *string
	ZipCode              string
	RoomType             RoomType
	Style                string
	RenderCount          int
	WantsQuote           bool
	SocialEngaged        bool
	IsRepeatVisitor      bool
	Status               Status
	Scores               Scores
	AssignedContractorID *uuid.UUID
	SentAt               *time.Time
	LastContactedAt      *time.Time
	ConversionValue      *float64
	ContractorNotes      *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasEmail reports a non-empty email.
func (l Lead) HasEmail() bool { return l.Email != nil && *l.Email != "" }

// HasPhone reports a non-empty phone.
func (l Lead) HasPhone() bool { return l.Phone != nil && *l.Phone != "" }

// HasName reports a non-empty name.
func (l Lead) HasName() bool { return l.Name != nil && *l.Name != "" }

// ResponseClockStart is the instant contractor response time is measured from.
func (l Lead) ResponseClockStart() time.Time {
	if l.SentAt != nil {
		return *l.SentAt
	}
	return l.CreatedAt
}

// Profile is the account behind a lead. It may be absent for anonymous sessions.
type Profile struct {
	ID                uuid.UUID
	Email             string
	Role              Role
	LoginCount        int
	TotalTimeOnSiteMs int64
	AIRenderingsCount int
	LastLoginAt       *time.Time
}

// AssignmentMethod records how a contractor was chosen.
type AssignmentMethod string

const (
	AssignmentManual    AssignmentMethod = "manual"
	AssignmentAutomatic AssignmentMethod = "automatic"
)

// Assignment is one routing event linking a lead to a contractor.
type Assignment struct {
	ID                  uuid.UUID
	LeadID              uuid.UUID
	ContractorID        uuid.UUID
	Method              AssignmentMethod
	EmailSent           bool
	EmailOpened         bool
	EmailClicked        bool
	ContractorResponded bool
	ResponseTimeHours   *int
	AssignedAt          time.Time
}
