package conflict

import (
	"context"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// AdditiveMerger merges two versions when one only adds lines to the other:
// the superset wins. Edits on both sides, or any removal, fail the merge.
type AdditiveMerger struct{}

// Merge implements Merger.
func (AdditiveMerger) Merge(_ context.Context, _ string, local, incoming []byte) ([]byte, bool, error) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(local), string(incoming))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var inserts, deletes bool
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserts = true
		case diffmatchpatch.DiffDelete:
			deletes = true
		}
	}

	switch {
	case inserts && deletes:
		return nil, false, nil
	case deletes:
		// local is a superset of the template version
		return local, true, nil
	default:
		return incoming, true, nil
	}
}
