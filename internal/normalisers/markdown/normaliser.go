package markdown

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown notes.
type Normaliser struct {
	extensions []string
}

// New creates a new Markdown normaliser. extra adds extensions beyond
// ".md" and ".markdown", such as a workspace's default extension.
func New(extra ...string) *Normaliser {
	exts := []string{".md", ".markdown"}
	for _, e := range extra {
		e = strings.ToLower(e)
		if e != "" && !contains(exts, e) {
			exts = append(exts, e)
		}
	}
	return &Normaliser{extensions: exts}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return n.extensions
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format-specific, higher than plaintext
}

// Normalise converts a markdown file to a note.
//
// The title comes from the front matter "title" key, then the first level-one
// heading, then the file name. Text is the body with front matter removed and
// formatting simplified. Wikilinks and inline links become Resource.Links.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawResource) (*domain.Resource, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	props, body, err := splitFrontMatter(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("front matter in %s: %w", raw.URI.Path, err)
	}

	title := titleFromProperties(props)
	if title == "" {
		title = extractMarkdownTitle(body, raw.URI)
	}

	return &domain.Resource{
		URI:        raw.URI.WithoutFragment(),
		Kind:       domain.KindNote,
		Title:      title,
		Text:       stripMarkdown(body),
		Links:      ExtractLinks(body),
		Properties: props,
	}, nil
}

var frontMatterDelim = []byte("---")

// splitFrontMatter separates a leading YAML block delimited by "---" lines.
// Content without front matter is returned unchanged with nil properties.
func splitFrontMatter(content []byte) (map[string]any, string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	normalised := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	first, rest, found := bytes.Cut(normalised, []byte("\n"))
	if !found || !bytes.Equal(bytes.TrimSpace(first), frontMatterDelim) {
		return nil, string(normalised), nil
	}

	var block []byte
	remaining := rest
	for {
		line, next, more := bytes.Cut(remaining, []byte("\n"))
		if bytes.Equal(bytes.TrimSpace(line), frontMatterDelim) {
			props := make(map[string]any)
			if err := yaml.Unmarshal(block, &props); err != nil {
				return nil, "", err
			}
			return props, string(next), nil
		}
		if !more {
			// Unterminated block: treat the whole file as body.
			return nil, string(normalised), nil
		}
		block = append(block, line...)
		block = append(block, '\n')
		remaining = next
	}
}

func titleFromProperties(props map[string]any) string {
	if props == nil {
		return ""
	}
	title, _ := props["title"].(string)
	return strings.TrimSpace(title)
}

// extractMarkdownTitle extracts a title from the first H1 or falls back to the file name.
func extractMarkdownTitle(content string, uri domain.URI) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	name := uri.Name()
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

var (
	codeBlockRe    = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe   = regexp.MustCompile("`[^`\n]+`")
	imageRe        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	embedRe        = regexp.MustCompile(`!\[\[[^\]]+\]\]`)
	linkRe         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	wikilinkRe     = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	headingRe      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasisRe     = regexp.MustCompile(`(\*\*|__|\*|_)([^*_\n]+)(\*\*|__|\*|_)`)
	blockquoteRe   = regexp.MustCompile(`(?m)^>\s*`)
	hrRe           = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkerRe   = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+(\[[ xX]\][ \t]+)?`)
	numberedListRe = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	newlinesRe     = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common markdown formatting for plain text content.
// Link labels survive; wikilinks keep their alias or target.
func stripMarkdown(content string) string {
	content = codeBlockRe.ReplaceAllString(content, "")
	content = inlineCodeRe.ReplaceAllString(content, "")
	content = imageRe.ReplaceAllString(content, "")
	content = embedRe.ReplaceAllString(content, "")
	content = linkRe.ReplaceAllString(content, "$1")
	content = wikilinkRe.ReplaceAllStringFunc(content, func(m string) string {
		sub := wikilinkRe.FindStringSubmatch(m)
		if sub[2] != "" {
			return sub[2]
		}
		return sub[1]
	})
	content = headingRe.ReplaceAllString(content, "")
	content = hrRe.ReplaceAllString(content, "")
	content = emphasisRe.ReplaceAllString(content, "$2")
	content = blockquoteRe.ReplaceAllString(content, "")
	content = listMarkerRe.ReplaceAllString(content, "")
	content = numberedListRe.ReplaceAllString(content, "")
	content = newlinesRe.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

var (
	wikilinkRefRe = regexp.MustCompile(`!?\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	mdLinkRefRe   = regexp.MustCompile(`!?\[([^\]]*)\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)
	schemeRe      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]+:`)
)

// ExtractLinks returns the wikilinks and relative markdown links in content,
// in document order. Links inside code and links with a URL scheme are skipped.
func ExtractLinks(content string) []domain.Link {
	content = codeBlockRe.ReplaceAllStringFunc(content, blank)
	content = inlineCodeRe.ReplaceAllStringFunc(content, blank)

	type found struct {
		at   int
		link domain.Link
	}
	var all []found

	for _, m := range wikilinkRefRe.FindAllStringSubmatchIndex(content, -1) {
		target := strings.TrimSpace(content[m[2]:m[3]])
		label := ""
		if m[4] >= 0 {
			label = strings.TrimSpace(content[m[4]:m[5]])
		}
		if target == "" {
			continue
		}
		all = append(all, found{at: m[0], link: domain.Link{Target: target, Label: label, Kind: domain.LinkWiki}})
	}

	for _, m := range mdLinkRefRe.FindAllStringSubmatchIndex(content, -1) {
		target := content[m[4]:m[5]]
		if schemeRe.MatchString(target) {
			continue
		}
		// Markdown targets are URL paths; a malformed escape is kept as written.
		if decoded, err := url.PathUnescape(target); err == nil {
			target = decoded
		}
		all = append(all, found{
			at:   m[0],
			link: domain.Link{Target: target, Label: content[m[2]:m[3]], Kind: domain.LinkMarkdown},
		})
	}

	if len(all) == 0 {
		return nil
	}

	// Merge the two scans back into document order.
	sort.SliceStable(all, func(i, j int) bool { return all[i].at < all[j].at })
	links := make([]domain.Link, len(all))
	for i, f := range all {
		links[i] = f.link
	}
	return links
}

// blank replaces s with spaces of the same length so match offsets stay valid.
func blank(s string) string {
	return strings.Repeat(" ", len(s))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
