package model

import (
	"path/filepath"
	"strings"
)

// Canonical media types accepted for upload.
const (
	MediaPDF  = "application/pdf"
	MediaDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MediaXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaXLS  = "application/vnd.ms-excel"
	MediaText = "text/plain"
	MediaMD   = "text/markdown"
	MediaCSV  = "text/csv"
	MediaPNG  = "image/png"
	MediaJPEG = "image/jpeg"
)

var extToMedia = map[string]string{
	".pdf":  MediaPDF,
	".docx": MediaDOCX,
	".pptx": MediaPPTX,
	".xlsx": MediaXLSX,
	".xls":  MediaXLS,
	".txt":  MediaText,
	".md":   MediaMD,
	".csv":  MediaCSV,
	".png":  MediaPNG,
	".jpg":  MediaJPEG,
	".jpeg": MediaJPEG,
}

// NormalizeMediaType lowercases the declared content type, strips any
// parameters (e.g. "; charset=utf-8") and folds aliases like image/jpg.
// When the declared type is empty or generic, it falls back to the
// file extension.
func NormalizeMediaType(declared, filename string) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	switch mt {
	case "image/jpg":
		mt = MediaJPEG
	case "", "application/octet-stream":
		mt = ""
	}
	if mt != "" {
		return mt
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return extToMedia[ext]
}
