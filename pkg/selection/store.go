// Package selection implements the image selection gate: the selection
// state store and the selector that validates candidates, confirms risky
// ones with the user, and commits accepted images.
package selection

import (
	"sync"

	"github.com/drivescribe/drivescribe/pkg/imagefile"
)

// CustomImage is an optional user-provided remote image override.
type CustomImage struct {
	URL  string
	Name string
}

// Store holds the currently accepted image descriptor and the optional
// custom-image override. Only the selector's commit path mutates the
// descriptor; everything else reads.
type Store struct {
	mu     sync.RWMutex
	image  *imagefile.Descriptor
	custom *CustomImage
}

// NewStore creates an empty selection store.
func NewStore() *Store {
	return &Store{}
}

// Get returns a copy of the current selection, if any.
func (s *Store) Get() (imagefile.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.image == nil {
		return imagefile.Descriptor{}, false
	}
	return *s.image, true
}

// Set commits a descriptor, replacing any previous selection.
func (s *Store) Set(d imagefile.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = &d
}

// Clear removes the current selection.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
}

// SetCustom records a custom-image override.
func (s *Store) SetCustom(c CustomImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom = &c
}

// Custom returns the custom-image override, if any.
func (s *Store) Custom() (CustomImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.custom == nil {
		return CustomImage{}, false
	}
	return *s.custom, true
}

// ClearCustom removes the custom-image override.
func (s *Store) ClearCustom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom = nil
}
