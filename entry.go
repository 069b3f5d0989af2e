package harvest

import "strings"

// Kind identifies which collection of an entry a sub-item belongs to.
type Kind string

// Sub-item kinds. Triggers always precede actions in flattened output.
const (
	KindTrigger Kind = "trigger"
	KindAction  Kind = "action"
)

// Kinds lists the sub-item kinds in export order.
var Kinds = []Kind{KindTrigger, KindAction}

// SubItem is a named element nested under an entry.
type SubItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Attributes holds optional descriptors (e.g. data-category). A missing
	// key means the attribute was not observed, not that it is false.
	Attributes map[string]string `json:"attributes"`
}

// Entry is one harvested catalog record. Its identity is Name; an entry is
// never modified after it is created.
type Entry struct {
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Triggers []SubItem `json:"triggers"`
	Actions  []SubItem `json:"actions"`
}

// Validate returns an error if the entry contains invalid fields.
func (e *Entry) Validate() error {
	if e.Name == "" {
		return Errorf(EINVALID, "entry name required")
	}
	if e.URL == "" {
		return Errorf(EINVALID, "entry url required")
	}
	return nil
}

// ID returns the entry's identifier, derived from its name.
func (e *Entry) ID() string {
	return Slug(e.Name)
}

// SubItems returns the sub-items of the given kind.
func (e *Entry) SubItems(kind Kind) []SubItem {
	switch kind {
	case KindTrigger:
		return e.Triggers
	case KindAction:
		return e.Actions
	}
	return nil
}

// Slug lower-cases name and replaces every space with a dash.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// Locator returns the page address of the named entry under sourceRoot.
func Locator(sourceRoot, name string) string {
	return strings.TrimSuffix(sourceRoot, "/") + "/" + Slug(name)
}
