// Package document implements the vault document format: an optional YAML
// frontmatter block fenced by `---` lines, followed by a free-form markdown
// body with fixed section markers.
package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata is the parsed frontmatter block of a vault document.
type Metadata map[string]any

// String returns the metadata value for key rendered as a trimmed string,
// or "" when the key is absent. YAML timestamps render as RFC 3339 so they
// survive a parse/format round trip.
func (m Metadata) String(key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// FirstString returns the first non-empty value among keys.
func (m Metadata) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := m.String(k); s != "" {
			return s
		}
	}
	return ""
}

var frontmatterRe = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n?(.*)`)

// Parse splits a document into its metadata block and body. It never fails:
// a missing frontmatter block yields an empty map and the whole text as
// body, and unparsable YAML degrades to an empty map plus the full original
// text so no content is lost.
func Parse(text string) (Metadata, string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	m := frontmatterRe.FindStringSubmatch(text)
	if m == nil {
		return Metadata{}, strings.TrimSpace(text)
	}

	meta := Metadata{}
	if err := yaml.Unmarshal([]byte(m[1]), &meta); err != nil {
		return Metadata{}, strings.TrimSpace(text)
	}
	if meta == nil {
		meta = Metadata{}
	}
	return meta, strings.TrimSpace(m[2])
}

// Render writes metadata + body back out with `---` fences.
func Render(meta Metadata, body string) (string, error) {
	data, err := yaml.Marshal(map[string]any(meta))
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String(), nil
}

// ExtractField pulls the value from a bolded-label line in the body.
// Both `**Label:** value` and `**Label**: value` styles are accepted.
func ExtractField(body, label string) string {
	re := regexp.MustCompile(`\*\*` + regexp.QuoteMeta(label) + `:?\*\*[:\s]+(.+)`)
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var messageRe = regexp.MustCompile(`(?s)##\s+Message[^#\n]*\n+(.*?)(?:\n#|$)`)

// ExtractMessage returns the content of the `## Message / Content` section,
// stopping at the next section header. Consistent leading indentation (the
// renderer indents the payload) is stripped.
func ExtractMessage(body string) string {
	m := messageRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(dedent(m[1]))
}

// RewriteStatus replaces the value of the `status:` metadata line in place,
// leaving every other line (and any trailing annotations) untouched.
func RewriteStatus(text, status string) string {
	re := regexp.MustCompile(`(?m)^status:\s*.+$`)
	return re.ReplaceAllString(text, "status: "+status)
}

// Sender extracts the most human-readable sender name from metadata,
// stripping an angle-bracket email part ("John Doe <j@x.com>" -> "John Doe").
func Sender(meta Metadata) string {
	raw := meta.FirstString("from", "sender", "name")
	if raw == "" {
		return "Unknown"
	}
	name, _, _ := strings.Cut(raw, "<")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown"
	}
	return name
}

// Subject extracts a subject line from metadata, falling back to a
// title-cased `kind` field and finally "N/A".
func Subject(meta Metadata) string {
	if s := meta.FirstString("subject", "topic"); s != "" {
		return s
	}
	if kind := meta.String("kind"); kind != "" {
		return titleWords(strings.ReplaceAll(kind, "_", " "))
	}
	return "N/A"
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// dedent strips the longest common leading whitespace from all non-blank
// lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	margin := ""
	found := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found {
			margin = indent
			found = true
			continue
		}
		for !strings.HasPrefix(line, margin) {
			margin = margin[:len(margin)-1]
		}
	}
	if margin == "" {
		return s
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = strings.TrimLeft(line, " \t")
			continue
		}
		lines[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(lines, "\n")
}
