package docstore

import (
	"fmt"
	"strings"
)

// Doc joins segments into a document path.
func Doc(segments ...string) string {
	return strings.Join(segments, "/")
}

// Segments splits a path and checks that no segment is empty.
func Segments(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return parts, nil
}

// SplitDoc returns the collection path and id of a document path.
func SplitDoc(path string) (collection, id string, err error) {
	parts, err := Segments(path)
	if err != nil {
		return "", "", err
	}
	if len(parts)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, path)
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1], nil
}

// ParentDoc returns the document owning a collection path, "" for a
// top-level collection.
func ParentDoc(collection string) (string, error) {
	parts, err := Segments(collection)
	if err != nil {
		return "", err
	}
	if len(parts)%2 != 1 {
		return "", fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, collection)
	}
	return strings.Join(parts[:len(parts)-1], "/"), nil
}

// CheckCollection validates a collection path.
func CheckCollection(collection string) error {
	_, err := ParentDoc(collection)
	return err
}
