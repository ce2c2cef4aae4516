// Package draft renders human-editable response drafts per item origin.
// Every draft is a clearly marked placeholder that a human personalises
// before approving any outbound action.
package draft

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kalambet/vaultflow/internal/classify"
	"github.com/kalambet/vaultflow/internal/document"
)

const personaliseMarker = "personalise this draft before approving"

// Generate produces a non-empty draft for the given origin. Unknown origins
// fall back to the generic file template. It never fails.
func Generate(origin classify.Origin, meta document.Metadata, body string) string {
	switch origin {
	case classify.OriginMail:
		return mailDraft(meta, body)
	case classify.OriginChat:
		return chatDraft(meta, body)
	case classify.OriginSocial:
		return socialDraft(meta, body)
	default:
		return fileDraft(meta)
	}
}

var headerRe = regexp.MustCompile(`#+.*?\n`)

func mailDraft(meta document.Metadata, body string) string {
	name := document.Sender(meta)
	subject := document.Subject(meta)
	snippet := strings.TrimSpace(truncate(headerRe.ReplaceAllString(body, ""), 300))
	snippet = strings.ReplaceAll(snippet, "\n", " ")
	return fmt.Sprintf(`Subject: Re: %s

Dear %s,

Thank you for your email regarding "%s".

I have reviewed your message:
> %s

I will provide a detailed response shortly.

[Placeholder — %s the send action.]

Best regards,
[Your Name]
`, subject, name, subject, snippet, personaliseMarker)
}

var chatPreviewRe = regexp.MustCompile(`(?s)### Message Preview\s*\n+(.*?)(?:\n##|$)`)

func chatDraft(meta document.Metadata, body string) string {
	name := document.Sender(meta)
	preview := truncate(body, 120)
	if m := chatPreviewRe.FindStringSubmatch(body); m != nil {
		preview = truncate(strings.TrimSpace(m[1]), 120)
	}
	return fmt.Sprintf(`Hi %s! 👋

Thanks for your message:
"%s"

I'll get back to you with a full response very soon.

[Placeholder — %s the send action.]
`, name, preview, personaliseMarker)
}

var socialMessageRe = regexp.MustCompile(`(?s)### Message[^#\n]*\n+(.*?)(?:\n##|$)`)

func socialDraft(meta document.Metadata, body string) string {
	name := document.Sender(meta)

	if meta.String("kind") == "connection_request" {
		return fmt.Sprintf(`Hi %s,

Thank you for connecting! I'm always happy to expand my professional network.

I'd love to learn more about what you do and explore potential collaboration.

Looking forward to connecting!

[Placeholder — %s.]
`, name, personaliseMarker)
	}

	msg := ""
	if m := socialMessageRe.FindStringSubmatch(body); m != nil {
		msg = truncate(strings.TrimSpace(m[1]), 200)
	}
	quoted := ""
	if msg != "" {
		quoted = fmt.Sprintf(": %q", truncate(msg, 80))
	}
	return fmt.Sprintf(`Hi %s,

Thank you for your message%s.

I appreciate you reaching out. I'd be happy to discuss this further.
Could you share a bit more detail so I can give you the best response?

[Placeholder — %s the send action.]

Best,
[Your Name]
`, name, quoted, personaliseMarker)
}

func fileDraft(meta document.Metadata) string {
	filename := meta.String("original_name")
	if filename == "" {
		filename = "the file"
	}
	size := meta.String("size_bytes")
	if size == "" {
		size = "unknown"
	}

	preview := ""
	if p := pdfPreview(meta.String("source_path")); p != "" {
		preview = fmt.Sprintf("\nContent preview (first page):\n> %s\n", p)
	}

	return fmt.Sprintf(`File received: %s  (%s bytes)
%s
Review checklist:
1. Open and inspect the file contents
2. Identify required action (respond / archive / process)
3. Draft appropriate response if needed

[Placeholder — %s after reviewing the file.]
`, filename, size, preview, personaliseMarker)
}

// pdfPreview extracts a short first-page text snippet when the dropped file
// is a readable PDF. Any failure degrades to an empty preview.
func pdfPreview(path string) string {
	if path == "" || strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return ""
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return ""
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	return truncate(text, 300)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
