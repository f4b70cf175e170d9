package app

import (
	"context"

	"homework_portal/internal/domain/homework"
)

// mutate loads the document, applies fn and saves against the loaded
// revision. When fn reports no change nothing is written.
func mutate(ctx context.Context, store homework.Store, fn func(data *homework.DataFile) (bool, error)) error {
	snap, err := store.Load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(snap.Data)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	_, err = store.Save(ctx, snap.Data, snap.Revision)
	return err
}

// subjectsOf returns the configured subject list, or the subjects of active
// assignments when none is configured.
func subjectsOf(configured []string, data *homework.DataFile) []string {
	if len(configured) > 0 {
		return configured
	}
	seen := map[string]bool{}
	subjects := []string{}
	for _, a := range data.ActiveAssignments() {
		if !seen[a.Subject] {
			seen[a.Subject] = true
			subjects = append(subjects, a.Subject)
		}
	}
	return subjects
}
