package storage

// NotFoundError is returned when a template doesn't exist in the store.
type NotFoundError struct {
	Hash string
}

func (e NotFoundError) Error() string {
	if e.Hash == "" {
		return "template not found"
	}

	return "template not found: " + e.Hash
}
