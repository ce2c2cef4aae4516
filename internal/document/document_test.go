package document

import (
	"strings"
	"testing"
)

func TestParseWithFrontmatter(t *testing.T) {
	text := "---\ntype: email\nfrom: Alice <alice@example.com>\n---\n\nBody text here."
	meta, body := Parse(text)
	if meta.String("type") != "email" {
		t.Errorf("type = %q, want %q", meta.String("type"), "email")
	}
	if meta.String("from") != "Alice <alice@example.com>" {
		t.Errorf("from = %q", meta.String("from"))
	}
	if !strings.Contains(body, "Body text here.") {
		t.Errorf("body %q missing text", body)
	}
}

func TestParseWithoutFrontmatter(t *testing.T) {
	meta, body := Parse("Just plain body text.")
	if len(meta) != 0 {
		t.Errorf("meta = %v, want empty", meta)
	}
	if body != "Just plain body text." {
		t.Errorf("body = %q", body)
	}
}

func TestParseBrokenFrontmatterKeepsFullText(t *testing.T) {
	text := "---\n: broken: yaml:\n---\n\nBody."
	meta, body := Parse(text)
	if len(meta) != 0 {
		t.Errorf("meta = %v, want empty", meta)
	}
	// Degrades to the full original text so nothing is lost.
	if !strings.Contains(body, "Body.") {
		t.Errorf("body %q missing original content", body)
	}
}

func TestParseCRLF(t *testing.T) {
	meta, body := Parse("---\r\nsource: mail\r\n---\r\n\r\nHello.")
	if meta.String("source") != "mail" {
		t.Errorf("source = %q", meta.String("source"))
	}
	if body != "Hello." {
		t.Errorf("body = %q", body)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	meta := Metadata{"source": "chat", "from": "Bob"}
	text, err := Render(meta, "Hi there.")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got, body := Parse(text)
	if got.String("source") != "chat" || got.String("from") != "Bob" {
		t.Errorf("round-trip meta = %v", got)
	}
	if body != "Hi there." {
		t.Errorf("round-trip body = %q", body)
	}
}

func TestExtractField(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		label string
		want  string
	}{
		{"colon inside bold", "- **Target:** John Doe <john@example.com>", "Target", "John Doe <john@example.com>"},
		{"colon outside bold", "- **Target**: Jane Smith", "Target", "Jane Smith"},
		{"slash in label", "- **Subject / Title:** Re: Testing", "Subject / Title", "Re: Testing"},
		{"missing label", "- **Action:** send_email", "Target", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractField(tt.body, tt.label); got != tt.want {
				t.Errorf("ExtractField(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestExtractMessage(t *testing.T) {
	body := "## Message / Content\n\n  Hello world\n  How are you?\n"
	msg := ExtractMessage(body)
	if msg != "Hello world\nHow are you?" {
		t.Errorf("ExtractMessage = %q", msg)
	}
}

func TestExtractMessageStopsAtNextSection(t *testing.T) {
	body := "## Message / Content\n\n  Hello\n\n## How to Approve\n\nOther stuff"
	msg := ExtractMessage(body)
	if !strings.Contains(msg, "Hello") {
		t.Errorf("ExtractMessage = %q, want Hello", msg)
	}
	if strings.Contains(msg, "Other stuff") {
		t.Errorf("ExtractMessage leaked next section: %q", msg)
	}
}

func TestExtractMessageStopsAtTopLevelHeader(t *testing.T) {
	body := "## Message / Content\n\n  Dear Alice,\n\n# How to Approve or Reject\n\n| table |"
	msg := ExtractMessage(body)
	if msg != "Dear Alice," {
		t.Errorf("ExtractMessage = %q, want %q", msg, "Dear Alice,")
	}
}

func TestTimestampMetadataRendersRFC3339(t *testing.T) {
	meta, _ := Parse("---\ncreated: 2026-03-14T10:30:00Z\n---\n\nBody.")
	if got := meta.String("created"); got != "2026-03-14T10:30:00Z" {
		t.Errorf("created = %q, want RFC 3339", got)
	}
}

func TestExtractMessageMissingSection(t *testing.T) {
	if msg := ExtractMessage("No message section here."); msg != "" {
		t.Errorf("ExtractMessage = %q, want empty", msg)
	}
}

func TestRewriteStatus(t *testing.T) {
	text := "---\ntype: approval_request\nstatus: pending\naction: send_email\n---\n\nBody.\n<!-- note -->\n"
	got := RewriteStatus(text, "sent")
	if !strings.Contains(got, "status: sent") {
		t.Errorf("status not rewritten: %q", got)
	}
	if strings.Contains(got, "status: pending") {
		t.Errorf("old status survived: %q", got)
	}
	if !strings.Contains(got, "action: send_email") || !strings.Contains(got, "<!-- note -->") {
		t.Errorf("other content not preserved: %q", got)
	}

	// Rewriting again replaces only the same field.
	again := RewriteStatus(got, "failed")
	if !strings.Contains(again, "status: failed") || !strings.Contains(again, "<!-- note -->") {
		t.Errorf("second rewrite broke document: %q", again)
	}
}

func TestSender(t *testing.T) {
	tests := []struct {
		name string
		meta Metadata
		want string
	}{
		{"strips angle bracket", Metadata{"from": "John Doe <john@example.com>"}, "John Doe"},
		{"plain name", Metadata{"from": "Jane Smith"}, "Jane Smith"},
		{"sender key", Metadata{"sender": "Bob"}, "Bob"},
		{"name key", Metadata{"name": "Alice"}, "Alice"},
		{"empty", Metadata{}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sender(tt.meta); got != tt.want {
				t.Errorf("Sender = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name string
		meta Metadata
		want string
	}{
		{"subject key", Metadata{"subject": "Re: Proposal"}, "Re: Proposal"},
		{"topic fallback", Metadata{"topic": "Partnership discussion"}, "Partnership discussion"},
		{"kind fallback", Metadata{"kind": "connection_request"}, "Connection Request"},
		{"empty", Metadata{}, "N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subject(tt.meta); got != tt.want {
				t.Errorf("Subject = %q, want %q", got, tt.want)
			}
		})
	}
}
