package service

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Pop removes the string from the set
func (ss StringSet) Pop(s string) {
	delete(ss, s)
}

// Slice returns a slice from the set
func (ss StringSet) Slice() []string {
	sl := make([]string, 0, len(ss))
	for k := range ss {
		sl = append(sl, k)
	}
	return sl
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}

// Retriable calls f until it succeeds, returns a Fatal error or an error that is not Temporary, or nbTries is reached.
// It waits backoff between two tries, doubling it after each try. It returns the last error.
func Retriable(ctx context.Context, f func() error, backoff time.Duration, nbTries int) error {
	var err error
	for i := 0; i < nbTries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return MergeErrors(true, err, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = f(); err == nil || Fatal(err) || !Temporary(err) {
			return err
		}
	}
	return err
}

// PathWithin returns true if the path p is strictly inside the directory dir, once both are cleaned.
// Symbolic links are not resolved.
func PathWithin(dir, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(p))
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
