package cache

import (
	"time"

	"github.com/Norgate-AV/vsmeta/internal/model"
)

// Entry represents a cached resolve result
type Entry struct {
	// Hash is the unique identifier for this cache entry
	// Computed from: source file path + content + platform + configuration + exclude + overrides
	Hash string `json:"hash"`

	// SourceFile is the absolute path to the requested .sln or .vcxproj file
	SourceFile string `json:"source_file"`

	Platform      string `json:"platform"`
	Configuration string `json:"configuration"`

	// Timestamp when this entry was created
	Timestamp time.Time `json:"timestamp"`

	// Inputs maps every file read while resolving to its content hash.
	// The entry is stale as soon as one of them changes.
	Inputs map[string]string `json:"inputs"`

	// Projects are the resolved descriptors
	Projects []model.ProjectDescriptor `json:"projects"`
}
