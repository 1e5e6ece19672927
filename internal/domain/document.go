package domain

import "time"

// Document is an uploaded file attached to a project. StoredName is the
// random on-disk filename; OriginalName is what the uploader called it.
type Document struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project"`
	StoredName   string    `json:"-"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"mimetype"`
	Size         int64     `json:"size"`
	UploadedBy   string    `json:"uploadedBy"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
