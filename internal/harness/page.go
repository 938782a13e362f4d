package harness

import (
	"fmt"
	"strings"
)

// ComposeDocument assembles the full HTML document served for one
// snippet. Supporting scripts are referenced by src, never inlined, so
// the browser's per-resource line numbering stays anchored to each
// script; the snippet itself is inlined verbatim inside a wrapper div.
// The snippet is trusted test input and is not sanitized.
//
// The document is emitted on a single line, matching the skeleton the
// error-line accounting was calibrated against.
func ComposeDocument(snippet string, scripts []SupportingScript) string {
	var b strings.Builder
	b.WriteString("<html><body><head>")
	for _, s := range scripts {
		fmt.Fprintf(&b, `<script src="%s" id="%s"></script>`, s.URL, s.Name)
	}
	b.WriteString("<style> canvas { max-width: 300px; max-height: 300px; } </style>")
	b.WriteString("</head>")
	b.WriteString("<div>")
	b.WriteString(snippet)
	b.WriteString("</div>")
	b.WriteString("</body></html>")
	return b.String()
}
