package ai

import "github.com/google/generative-ai-go/genai"

// FileState is the processing state of a file held by the remote service.
type FileState string

const (
	FileStateUnspecified FileState = "unspecified"
	FileStateUploading   FileState = "uploading"
	FileStateProcessing  FileState = "processing"
	FileStateActive      FileState = "active"
	FileStateFailed      FileState = "failed"
)

// Pending reports whether the remote service may still move the file to active.
func (s FileState) Pending() bool {
	switch s {
	case FileStateUploading, FileStateProcessing:
		return true
	}
	return false
}

// RemoteFile is an opaque handle to a file uploaded to the generative service.
type RemoteFile struct {
	Name        string    `json:"name"`
	URI         string    `json:"uri"`
	DisplayName string    `json:"display_name"`
	MIMEType    string    `json:"mime_type"`
	State       FileState `json:"state"`
}

func fromGenaiFile(f *genai.File) *RemoteFile {
	return &RemoteFile{
		Name:        f.Name,
		URI:         f.URI,
		DisplayName: f.DisplayName,
		MIMEType:    f.MIMEType,
		State:       fromGenaiState(f.State),
	}
}

func fromGenaiState(s genai.FileState) FileState {
	switch s {
	case genai.FileStateProcessing:
		return FileStateProcessing
	case genai.FileStateActive:
		return FileStateActive
	case genai.FileStateFailed:
		return FileStateFailed
	default:
		return FileStateUnspecified
	}
}
