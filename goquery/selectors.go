// Package goquery reads catalog listings and entry pages with CSS selectors.
package goquery

// Selectors locates catalog and entry elements in rendered HTML.
type Selectors struct {
	// Page must match on every rendered entry page. A miss means the page
	// did not render and the entry is failed rather than stored empty.
	// Empty disables the check.
	Page string

	// Catalog matches one element per entry name on the catalog page.
	Catalog string

	// Trigger and Action match one element per sub-item.
	Trigger string
	Action  string

	// Description matches the description inside a sub-item element.
	Description string

	// Attributes lists the sub-item element attributes to record.
	Attributes []string
}

// DefaultSelectors returns the selectors for the connector catalog layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Page:        "#__layout",
		Catalog:     "span.adapter-list__item-name",
		Trigger:     "#__layout article.apps-page__section_recipe section:nth-child(1) ul > li",
		Action:      "#__layout article.apps-page__section_recipe section:nth-child(2) ul > li",
		Description: ".description",
		Attributes:  []string{"data-type", "data-category", "data-requirements"},
	}
}

// Merge returns s with every empty field taken from defaults.
func (s Selectors) Merge(defaults Selectors) Selectors {
	if s.Page == "" {
		s.Page = defaults.Page
	}
	if s.Catalog == "" {
		s.Catalog = defaults.Catalog
	}
	if s.Trigger == "" {
		s.Trigger = defaults.Trigger
	}
	if s.Action == "" {
		s.Action = defaults.Action
	}
	if s.Description == "" {
		s.Description = defaults.Description
	}
	if len(s.Attributes) == 0 {
		s.Attributes = defaults.Attributes
	}
	return s
}
