// internal/domain/models/document.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is a controlled policy or procedure. Body holds sanitized HTML.
type Document struct {
	ID             primitive.ObjectID  `bson:"_id"`
	OrganizationID primitive.ObjectID  `bson:"org_id"`
	Title          string              `bson:"title"`
	Kind           string              `bson:"kind"` // policy | procedure | record
	Body           string              `bson:"body,omitempty"`
	Version        int                 `bson:"version"`
	Status         string              `bson:"status"`
	ApprovedBy     *primitive.ObjectID `bson:"approved_by,omitempty"`
	ApprovedAt     *time.Time          `bson:"approved_at,omitempty"`
	ReviewDue      *time.Time          `bson:"review_due,omitempty"`
	DeletedAt      *time.Time          `bson:"deleted_at,omitempty"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

// Document statuses.
const (
	DocumentDraft    = "draft"
	DocumentInReview = "in_review"
	DocumentApproved = "approved"
	DocumentArchived = "archived"
)

// DocumentKinds lists document kinds.
var DocumentKinds = []string{"policy", "procedure", "record"}

// documentTransitions lists the statuses reachable from each status.
var documentTransitions = map[string][]string{
	DocumentDraft:    {DocumentInReview, DocumentArchived},
	DocumentInReview: {DocumentDraft, DocumentApproved},
	DocumentApproved: {DocumentDraft, DocumentArchived},
	DocumentArchived: {},
}

// CanTransitionDocument reports whether a document may move from -> to.
func CanTransitionDocument(from, to string) bool {
	return contains(documentTransitions[from], to)
}

// ValidDocumentKind reports whether s is a known document kind.
func ValidDocumentKind(s string) bool { return contains(DocumentKinds, s) }

// NextDocumentStatuses returns the statuses a document in from may move to.
func NextDocumentStatuses(from string) []string {
	return documentTransitions[from]
}
