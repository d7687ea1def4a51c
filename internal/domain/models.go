package domain

import (
	"time"
)

type Project struct {
	ID            uint64        `json:"id" gorm:"primaryKey"`
	Name          string        `json:"name"`
	Status        ProjectStatus `json:"status" gorm:"type:varchar(32);default:DRAFT"`
	ReviewComment *string       `json:"review_comment,omitempty"`
	ReviewedBy    *string       `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Versions      []Version     `json:"versions,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

type Version struct {
	ID        uint64        `json:"id" gorm:"primaryKey"`
	ProjectID uint64        `json:"project_id" gorm:"index"`
	Label     string        `json:"label"`
	Status    VersionStatus `json:"status" gorm:"type:varchar(32);default:DRAFT"`
	CreatedAt time.Time     `json:"created_at"`
	Files     []File        `json:"files,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

type File struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	VersionID uint64    `json:"version_id" gorm:"index"`
	MediaType string    `json:"media_type"`
	// AnnotationSeq is bumped transactionally on every annotation insert so
	// two concurrent creates on one file can never race on ordering.
	AnnotationSeq uint64    `json:"-" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at"`
}

// Author is the self-asserted role/name pair kept for wire compatibility.
// When the caller presents a verified identity token, that identity wins
// over whatever the request body claims.
type Author struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// Annotation is a feedback item attached to a file. With a position it is a
// spatial annotation on a rendered image; with a nil position it is a plain
// file comment. Replies are append-only.
type Annotation struct {
	ID         uint64           `json:"id" gorm:"primaryKey"`
	FileID     uint64           `json:"file_id" gorm:"uniqueIndex:idx_annotations_file_seq,priority:1"`
	Seq        uint64           `json:"-" gorm:"uniqueIndex:idx_annotations_file_seq,priority:2"`
	PosX       *float64         `json:"-"`
	PosY       *float64         `json:"-"`
	Content    string           `json:"content"`
	AuthorRole string           `json:"-"`
	AuthorName string           `json:"-"`
	Status     AnnotationStatus `json:"status" gorm:"type:varchar(32);default:PENDING"`
	Resolved   bool             `json:"is_resolved"`
	ResolvedBy *string          `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	Replies    []Reply          `json:"replies" gorm:"constraint:OnDelete:CASCADE"`
}

type Reply struct {
	ID           uint64    `json:"id" gorm:"primaryKey"`
	AnnotationID uint64    `json:"annotation_id" gorm:"index"`
	Content      string    `json:"content"`
	AuthorRole   string    `json:"-"`
	AuthorName   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPosition reports whether both coordinates are set.
func (a *Annotation) HasPosition() bool {
	return a.PosX != nil && a.PosY != nil
}

func (a *Annotation) Author() Author {
	return Author{Role: a.AuthorRole, Name: a.AuthorName}
}

func (r *Reply) Author() Author {
	return Author{Role: r.AuthorRole, Name: r.AuthorName}
}
