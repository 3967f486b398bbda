package storage

import "io"

// ClipStore persists uploaded clips so the pipeline can read them by path.
type ClipStore interface {
	// SaveClip writes the clip and returns its stored filename.
	SaveClip(r io.Reader, originalName string) (string, error)

	// Path resolves a stored filename to an absolute on-disk path.
	Path(filename string) (string, error)

	DeleteClip(filename string) error
}
