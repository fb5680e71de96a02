package domain

import "strings"

// State tags used on the host. They only exist at the storage boundary;
// inside the module a note's state lives in Role and Content.
const (
	TagRequires  = "requires"
	TagGenerated = "generated"
	TagSpread    = "spread"
)

// SetTags splits host tags into the explicit state and the remaining tags.
// If both requires and generated are present, requires wins so the note
// gets regenerated.
func (n *Note) SetTags(tags []string) {
	n.Role = RolePrimary
	n.Content = ContentIdle
	n.Tags = nil

	var requires, generated bool
	for _, tag := range tags {
		switch strings.ToLower(tag) {
		case TagRequires:
			requires = true
		case TagGenerated:
			generated = true
		case TagSpread:
			n.Role = RoleSpread
		case "":
		default:
			n.Tags = append(n.Tags, tag)
		}
	}

	switch {
	case requires:
		n.Content = ContentAwaitingGeneration
	case generated:
		n.Content = ContentPresent
	}
}

// HostTags renders the note's state back into host tags.
func (n *Note) HostTags() []string {
	tags := make([]string, 0, len(n.Tags)+2)
	tags = append(tags, n.Tags...)
	switch n.Content {
	case ContentAwaitingGeneration:
		tags = append(tags, TagRequires)
	case ContentPresent:
		tags = append(tags, TagGenerated)
	}
	if n.Role == RoleSpread {
		tags = append(tags, TagSpread)
	}
	return tags
}

// HasTag reports whether the note would carry tag on the host.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.HostTags() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
