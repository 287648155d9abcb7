package remote

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// ListDirectory fetches the listing of root/subdir keyed by NFC-normalized name.
//
// A directory that does not exist yet is returned as an empty listing. Any
// other failure is returned to the caller, which decides how to carry on.
func ListDirectory(ctx context.Context, store Store, root, subdir string) (Listing, error) {
	path := Join(root, subdir)

	entries, err := store.List(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Listing{}, nil
		}
		return nil, fmt.Errorf("list directory %s: %w", path, err)
	}

	listing := make(Listing, len(entries))
	for name, entry := range entries {
		listing[norm.NFC.String(name)] = entry
	}
	return listing, nil
}
