package domain

// ResourceKind discriminates the resource variants held by a workspace.
type ResourceKind string

// Available resource kinds.
const (
	// KindNote is a parsed text resource with a title and body.
	KindNote ResourceKind = "note"

	// KindAttachment is any other file (images, PDFs). It has no text.
	KindAttachment ResourceKind = "attachment"

	// KindPlaceholder is a referenced resource that has not been created.
	KindPlaceholder ResourceKind = "placeholder"
)

// IsValid returns true if the kind is recognised.
func (k ResourceKind) IsValid() bool {
	switch k {
	case KindNote, KindAttachment, KindPlaceholder:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k ResourceKind) String() string {
	return string(k)
}

// LinkKind distinguishes the syntax a link was written in.
type LinkKind string

// Available link kinds.
const (
	// LinkWiki is a [[identifier]] style reference.
	LinkWiki LinkKind = "wikilink"

	// LinkMarkdown is a [label](path) style reference.
	LinkMarkdown LinkKind = "link"
)

// Link is an outgoing reference found in a resource.
type Link struct {
	// Target is the raw reference text, including any #fragment.
	Target string

	// Label is the visible text, if any.
	Label string

	// Kind is the syntax the link was written in.
	Kind LinkKind
}

// Resource is a note, attachment or placeholder addressed by URI.
// The index only inspects URI; similarity also reads Title and Text.
type Resource struct {
	// URI identifies the resource. Unique within a workspace.
	URI URI

	// Kind is the resource variant.
	Kind ResourceKind

	// Title is the display title (front matter, first heading or filename).
	Title string

	// Text is the plain body text used for embeddings.
	Text string

	// Links are outgoing references in document order.
	Links []Link

	// Properties holds front matter values.
	Properties map[string]any
}

// ResourceURI returns the resource's URI.
func (r Resource) ResourceURI() URI {
	return r.URI
}

// WithURI returns a copy of r addressed by u.
func (r Resource) WithURI(u URI) Resource {
	r.URI = u
	return r
}

// NewPlaceholder returns the placeholder resource for an unresolved reference.
func NewPlaceholder(reference string) Resource {
	return Resource{
		URI:   PlaceholderURI(reference),
		Kind:  KindPlaceholder,
		Title: reference,
	}
}

// IsIndexable reports whether r takes part in the similarity index.
// Only notes carry text worth embedding.
func IsIndexable(r Resource) bool {
	return r.Kind == KindNote
}

// EmbeddingText returns the text embedded for r: the title, a blank line, then the body.
func EmbeddingText(r Resource) string {
	if r.Title == "" {
		return r.Text
	}
	if r.Text == "" {
		return r.Title
	}
	return r.Title + "\n\n" + r.Text
}
