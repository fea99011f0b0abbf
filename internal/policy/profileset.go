package policy

import "sort"

// ProfileSet is an immutable collection of named profiles loaded from one
// configuration file. It is an explicit value passed into the scheduler at
// run start; there is no process-wide registry.
type ProfileSet struct {
	profiles map[string]*Profile
}

// NewProfileSet builds a set from the given profiles. Later profiles with
// duplicate names are ignored; the config layer rejects duplicates before
// this point.
func NewProfileSet(profiles ...*Profile) *ProfileSet {
	m := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		if _, ok := m[p.Name]; !ok {
			m[p.Name] = p
		}
	}
	return &ProfileSet{profiles: m}
}

// Get returns the named profile.
func (s *ProfileSet) Get(name string) (*Profile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

// Names returns all profile names in sorted order.
func (s *ProfileSet) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of profiles in the set.
func (s *ProfileSet) Len() int {
	return len(s.profiles)
}
