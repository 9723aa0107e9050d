package document

// Document is the root of a parsed source document.
type Document struct {
	Title    string     // Document title (from metadata or filename)
	Sections []*Section // Top-level sections
}

// Section is a recursive region of a document.
type Section struct {
	Heading  string     // Section heading (empty for plain text regions)
	Text     string     // Text content of this section
	Page     int        // Source page (0 if not applicable)
	Children []*Section // Subsections
}

// Empty reports whether the document carries no text at all.
func (d *Document) Empty() bool {
	var hasText func(s *Section) bool
	hasText = func(s *Section) bool {
		if s.Text != "" {
			return true
		}
		for _, c := range s.Children {
			if hasText(c) {
				return true
			}
		}
		return false
	}
	for _, s := range d.Sections {
		if hasText(s) {
			return false
		}
	}
	return true
}
