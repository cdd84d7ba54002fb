package model

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Document represents one input narrative to process
type Document struct {
	RID    uuid.UUID `json:"rid"`
	Title  string    `json:"title"`
	Source string    `json:"source,omitempty"`
	Text   string    `json:"text"`
}

// NewDocument creates a Document with a fresh random ID
func NewDocument(title, text string) *Document {
	return &Document{
		RID:   uuid.New(),
		Title: title,
		Text:  text,
	}
}

// NewDocumentFromFile reads a file and creates a Document with the file content
// The title defaults to the filename, and source to the file path
func NewDocumentFromFile(filePath string) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	// Get filename without extension for default title
	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return &Document{
		RID:    uuid.New(),
		Title:  title,
		Source: filePath,
		Text:   string(content),
	}, nil
}
