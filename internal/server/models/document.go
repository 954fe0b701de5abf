package models

import "time"

// Document is the metadata record of a scanned document. The file body lives
// in object storage under StorageKey; only presigned URLs ever leave the
// server.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	OCRText    string    `json:"ocr_text"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
