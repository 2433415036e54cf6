package model

import (
	"fmt"
	"strings"
	"time"
)

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusAccepted SubmissionStatus = "accepted"
	StatusRejected SubmissionStatus = "rejected"
)

type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentDocument AttachmentKind = "doc"
)

// Attachment is a tagged media reference carried by a submission or a
// task. The FileID is opaque to us.
type Attachment struct {
	Kind   AttachmentKind `json:"kind"`
	FileID string         `json:"file_id"`
}

// Submission is a learner's single recorded answer to a task. At most
// one row may ever exist per (user, task); the storage layer enforces
// this with a unique constraint.
type Submission struct {
	ID          int64            `json:"submission_id"`
	UserID      int64            `json:"user_id"`
	TaskID      int64            `json:"task_id"`
	Status      SubmissionStatus `json:"status"`
	Score       *int             `json:"score,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Attachments []Attachment     `json:"attachments,omitempty"`
	Content     *string          `json:"content,omitempty"`
}

// EncodeAttachments serializes attachments into the stored
// "kind:file_id" comma list. Empty input encodes to "".
func EncodeAttachments(atts []Attachment) string {
	parts := make([]string, 0, len(atts))
	for _, a := range atts {
		parts = append(parts, string(a.Kind)+":"+a.FileID)
	}
	return strings.Join(parts, ",")
}

// DecodeAttachments parses the stored comma list back into tagged
// attachments. Malformed entries are rejected rather than skipped so a
// corrupted row is noticed, not silently truncated.
func DecodeAttachments(s string) ([]Attachment, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	atts := make([]Attachment, 0, len(parts))
	for _, p := range parts {
		kind, id, ok := strings.Cut(p, ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("malformed attachment entry %q", p)
		}
		switch AttachmentKind(kind) {
		case AttachmentPhoto, AttachmentDocument:
			atts = append(atts, Attachment{Kind: AttachmentKind(kind), FileID: id})
		default:
			return nil, fmt.Errorf("unknown attachment kind %q", kind)
		}
	}
	return atts, nil
}
