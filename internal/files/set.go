// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package files

// Set is an ordered, duplicate-free collection of file paths. Paths keep
// the order in which they were first added.
type Set struct {
	paths []string
	seen  map[string]struct{}
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add appends path unless it is already present. It reports whether the
// path was added.
func (s *Set) Add(path string) bool {
	if _, ok := s.seen[path]; ok {
		return false
	}
	s.seen[path] = struct{}{}
	s.paths = append(s.paths, path)
	return true
}

// Contains reports whether path is in the set.
func (s *Set) Contains(path string) bool {
	_, ok := s.seen[path]
	return ok
}

// Len returns the number of paths.
func (s *Set) Len() int {
	return len(s.paths)
}

// Paths returns a copy of the paths in insertion order.
func (s *Set) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Filter returns a new Set holding the paths for which keep returns true,
// in the same order.
func (s *Set) Filter(keep func(string) bool) *Set {
	out := NewSet()
	for _, p := range s.paths {
		if keep(p) {
			out.Add(p)
		}
	}
	return out
}
