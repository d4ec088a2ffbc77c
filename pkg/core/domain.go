// Package core holds the storage-agnostic domain of tilth: documents, the
// repository contract and the service that applies business rules on top.
package core

import "fmt"

// Metadata represents the flexible key-value pairs associated with a document.
type Metadata map[string]any

// Document is the central entity of the domain.
// It represents a piece of content identified by an ID.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
	// Format names the metadata block syntax ("yaml", "toml") the document was
	// read with. Adapters keep it on save; empty means adapter default.
	Format string
}

// EventType represents the type of change in the repository.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the repository.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
