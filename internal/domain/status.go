package domain

import (
	"fmt"
	"strings"
)

// ProjectStatus is the canonical project workflow status. Legacy wire
// literals ("rejected", action verbs) are mapped here at the boundary and
// never stored or propagated.
type ProjectStatus string

const (
	ProjectDraft             ProjectStatus = "DRAFT"
	ProjectPending           ProjectStatus = "PENDING"
	ProjectApproved          ProjectStatus = "APPROVED"
	ProjectRevisionRequested ProjectStatus = "REVISION_REQUESTED"
)

// Terminal reports whether no further annotation mutation is permitted.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectApproved || s == ProjectRevisionRequested
}

// ParseProjectAction maps a review action from the wire ("approve"/"reject",
// legacy "approved"/"rejected") to the resulting canonical status.
func ParseProjectAction(raw string) (ProjectStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved":
		return ProjectApproved, nil
	case "reject", "rejected", "request_revision":
		return ProjectRevisionRequested, nil
	default:
		return "", fmt.Errorf("unknown review action %q", raw)
	}
}

type VersionStatus string

const (
	VersionDraft         VersionStatus = "DRAFT"
	VersionPendingReview VersionStatus = "PENDING_REVIEW"
	VersionApproved      VersionStatus = "APPROVED"
	VersionRejected      VersionStatus = "REJECTED"
)

// AnnotationStatus is the canonical annotation resolution status.
type AnnotationStatus string

const (
	AnnotationPending   AnnotationStatus = "PENDING"
	AnnotationCompleted AnnotationStatus = "COMPLETED"
	AnnotationRejected  AnnotationStatus = "REJECTED"
)

// ParseAnnotationStatus accepts the canonical literals plus the legacy
// spellings found in older clients ("OPEN", "RESOLVED", lowercase variants).
func ParseAnnotationStatus(raw string) (AnnotationStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING", "OPEN":
		return AnnotationPending, nil
	case "COMPLETED", "RESOLVED":
		return AnnotationCompleted, nil
	case "REJECTED":
		return AnnotationRejected, nil
	default:
		return "", fmt.Errorf("unknown annotation status %q", raw)
	}
}
