package portal

import (
	"strings"
	"time"
)

// DocumentKind classifies an assignable document.
type DocumentKind string

const (
	DocOnboarding DocumentKind = "onboarding"
	DocHandbook   DocumentKind = "handbook"
	DocTraining   DocumentKind = "training"
	DocPolicy     DocumentKind = "policy"
	DocHRRecord   DocumentKind = "hr_record"
	DocOther      DocumentKind = "other"
)

func (k DocumentKind) Valid() bool {
	switch k {
	case DocOnboarding, DocHandbook, DocTraining, DocPolicy, DocHRRecord, DocOther:
		return true
	}
	return false
}

// Document is admin-authored content that staff must act on.
type Document struct {
	ID          string            `json:"id" bson:"_id,omitempty"`
	Kind        DocumentKind      `json:"kind" bson:"kind"`
	Title       string            `json:"title" bson:"title"`
	Description string            `json:"description" bson:"description"`
	Content     string            `json:"content,omitempty" bson:"content,omitempty"`
	FileRef     string            `json:"fileRef,omitempty" bson:"fileRef,omitempty"`
	IsRequired  bool              `json:"isRequired" bson:"isRequired"`
	OrderIndex  int               `json:"orderIndex" bson:"orderIndex"`
	Metadata    map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedBy   string            `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt   time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// Status is the lifecycle state of a document submission.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusDraft      Status = "draft"
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// Submission is the per-user progress record for one document.
type Submission struct {
	ID            string     `json:"id" bson:"_id,omitempty"`
	DocumentID    string     `json:"documentId" bson:"documentId"`
	UserID        string     `json:"userId" bson:"userId"`
	Status        Status     `json:"status" bson:"status"`
	CompletedAt   *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	LastSavedAt   *time.Time `json:"lastSavedAt,omitempty" bson:"lastSavedAt,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
	FormData      *FormData  `json:"formData,omitempty" bson:"formData,omitempty"`
	Notes         string     `json:"notes,omitempty" bson:"notes,omitempty"`
	SignatureRef  string     `json:"signatureRef,omitempty" bson:"signatureRef,omitempty"`
	AdminComments string     `json:"adminComments,omitempty" bson:"adminComments,omitempty"`
	ReviewedBy    string     `json:"reviewedBy,omitempty" bson:"reviewedBy,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Assignment maps a document to a staff member.
type Assignment struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	DocumentID string    `json:"documentId" bson:"documentId"`
	UserID     string    `json:"userId" bson:"userId"`
	AssignedBy string    `json:"assignedBy,omitempty" bson:"assignedBy,omitempty"`
	AssignedAt time.Time `json:"assignedAt" bson:"assignedAt"`
}

// AssignedDocument joins a staff member's assignment with their progress.
type AssignedDocument struct {
	Document   *Document   `json:"document"`
	Submission *Submission `json:"submission,omitempty"`
	Status     Status      `json:"status"`
}

// HRRecord is a staff-scoped HR artifact (offer letter, contract, ...).
type HRRecord struct {
	ID                     string     `json:"id" bson:"_id,omitempty"`
	UserID                 string     `json:"userId" bson:"userId"`
	RecordType             string     `json:"recordType" bson:"recordType"`
	Title                  string     `json:"title" bson:"title"`
	Description            string     `json:"description,omitempty" bson:"description,omitempty"`
	FileRef                string     `json:"fileRef,omitempty" bson:"fileRef,omitempty"`
	RequiresAcknowledgment bool       `json:"requiresAcknowledgment" bson:"requiresAcknowledgment"`
	AcknowledgedAt         *time.Time `json:"acknowledgedAt,omitempty" bson:"acknowledgedAt,omitempty"`
	AcknowledgmentFileRef  string     `json:"acknowledgmentFileRef,omitempty" bson:"acknowledgmentFileRef,omitempty"`
	SignatureRef           string     `json:"signatureRef,omitempty" bson:"signatureRef,omitempty"`
	AcknowledgmentNotes    string     `json:"acknowledgmentNotes,omitempty" bson:"acknowledgmentNotes,omitempty"`
	CreatedBy              string     `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt              time.Time  `json:"createdAt" bson:"createdAt"`
}

// HRStatus is derived from AcknowledgedAt; it is never stored.
type HRStatus string

const (
	HRPending      HRStatus = "pending"
	HRAcknowledged HRStatus = "acknowledged"
)

func (r *HRRecord) Status() HRStatus {
	if r.AcknowledgedAt != nil {
		return HRAcknowledged
	}
	return HRPending
}

// HumanizeRecordType turns "offer_letter" into "offer letter".
func HumanizeRecordType(t string) string {
	return strings.Join(strings.FieldsFunc(t, func(r rune) bool { return r == '_' }), " ")
}

// TrainingStatus is the lifecycle state of a training module for one user.
type TrainingStatus string

const (
	TrainingNotStarted TrainingStatus = "not_started"
	TrainingInProgress TrainingStatus = "in_progress"
	TrainingCompleted  TrainingStatus = "completed"
	TrainingExpired    TrainingStatus = "expired"
)

type TrainingModule struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	Content      string    `json:"content,omitempty" bson:"content,omitempty"`
	VideoURL     string    `json:"videoUrl,omitempty" bson:"videoUrl,omitempty"`
	IsMandatory  bool      `json:"isMandatory" bson:"isMandatory"`
	ExpiryMonths int       `json:"expiryMonths,omitempty" bson:"expiryMonths,omitempty"`
	PassingScore int       `json:"passingScore,omitempty" bson:"passingScore,omitempty"`
	CreatedBy    string    `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (m *TrainingModule) HasVideo() bool { return m.VideoURL != "" }

type TrainingProgress struct {
	ID          string         `json:"id" bson:"_id,omitempty"`
	ModuleID    string         `json:"moduleId" bson:"moduleId"`
	UserID      string         `json:"userId" bson:"userId"`
	Status      TrainingStatus `json:"status" bson:"status"`
	StartedAt   *time.Time     `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	Score       *int           `json:"score,omitempty" bson:"score,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// TrainingAssignment targets either one user or a whole department.
type TrainingAssignment struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	ModuleID    string     `json:"moduleId" bson:"moduleId"`
	UserID      string     `json:"userId,omitempty" bson:"userId,omitempty"`
	Department  string     `json:"department,omitempty" bson:"department,omitempty"`
	IsMandatory bool       `json:"isMandatory" bson:"isMandatory"`
	Deadline    *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Notes       string     `json:"notes,omitempty" bson:"notes,omitempty"`
	AssignedBy  string     `json:"assignedBy,omitempty" bson:"assignedBy,omitempty"`
	AssignedAt  time.Time  `json:"assignedAt" bson:"assignedAt"`
}

// AssignedTraining joins a module with the caller's assignment and progress.
type AssignedTraining struct {
	Module     *TrainingModule     `json:"module"`
	Assignment *TrainingAssignment `json:"assignment"`
	Progress   *TrainingProgress   `json:"progress,omitempty"`
	Status     TrainingStatus      `json:"status"`
}

type VideoProgress struct {
	ID                 string    `json:"id" bson:"_id,omitempty"`
	ModuleID           string    `json:"moduleId" bson:"moduleId"`
	UserID             string    `json:"userId" bson:"userId"`
	CurrentTimeSeconds float64   `json:"currentTimeSeconds" bson:"currentTimeSeconds"`
	DurationSeconds    float64   `json:"durationSeconds" bson:"durationSeconds"`
	WatchedPercentage  float64   `json:"watchedPercentage" bson:"watchedPercentage"`
	VideoCompleted     bool      `json:"videoCompleted" bson:"videoCompleted"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"`
}

// WatchedPercentage is currentTime/duration*100 clamped to [0, 100].
func WatchedPercentage(current, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	p := current / duration * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
