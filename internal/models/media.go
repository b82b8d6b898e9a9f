package models

import (
	"path/filepath"
	"slices"
	"strings"
)

// MediaKind tags the origin of a source document.
type MediaKind string

const (
	KindPDF      MediaKind = "pdf"
	KindAudio    MediaKind = "audio"
	KindVideo    MediaKind = "video"
	KindWeb      MediaKind = "web"
	KindDocument MediaKind = "document"
)

// AudioExtensions lists the containers accepted as audio uploads.
var AudioExtensions = []string{".mp4", ".avi", ".mov", ".m4a", ".mp3", ".webm", ".wav"}

// DocumentExtensions lists the office and plain text formats accepted as documents.
var DocumentExtensions = []string{".docx", ".pptx", ".xlsx", ".xlsm", ".txt", ".md"}

// Label builds the human readable key a knowledge base is selected by.
func (k MediaKind) Label(name string) string {
	switch k {
	case KindPDF:
		return "PDF: " + name
	case KindAudio:
		return "Audio: " + name
	case KindVideo:
		return "Video (YouTube): " + name
	case KindWeb:
		return "web url: " + name
	case KindDocument:
		return "Document: " + name
	default:
		return string(k) + ": " + name
	}
}

// KindFromPath guesses the media kind of a file from its extension.
func KindFromPath(path string) (MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return KindPDF, true
	case slices.Contains(AudioExtensions, ext):
		return KindAudio, true
	case slices.Contains(DocumentExtensions, ext):
		return KindDocument, true
	}
	return "", false
}
