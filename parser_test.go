package knowsearch

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContentsByFileTypeUnknownExtensionIsNil(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "data.bin", "irrelevant")

	chars, err := ContentsByFileType(path)
	if err != nil || chars != nil {
		t.Fatalf("got %v, %v, want nil, nil for an unrecognized extension", chars, err)
	}
}

func TestContentsByFileTypeEmptyResultIsNil(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "empty.txt", "")

	chars, err := ContentsByFileType(path)
	if err != nil || chars != nil {
		t.Fatalf("got %v, %v, want nil, nil for empty content", chars, err)
	}
}

func TestParseTxtNormalizesNewlines(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "doc.txt", "line one\r\nline two\n")

	chars, err := ContentsByFileType(path)
	if err != nil {
		t.Fatalf("ContentsByFileType: %v", err)
	}
	got := string(chars)
	if strings.Contains(got, "\r") || strings.Contains(got, "\n") {
		t.Fatalf("got %q, newlines/carriage returns must be normalized away", got)
	}
	if !strings.Contains(got, "line one") || !strings.Contains(got, "line two") {
		t.Fatalf("got %q, missing expected content", got)
	}
}

func TestParseHTMLSkipsScriptAndStyle(t *testing.T) {
	dir := t.TempDir()
	html := `<html><head><style>.x{color:red}</style></head>
<body><p>Visible text</p><script>var x = "hidden";</script></body></html>`
	path := writeTempFile(t, dir, "page.html", html)

	chars, err := ContentsByFileType(path)
	if err != nil {
		t.Fatalf("ContentsByFileType: %v", err)
	}
	got := string(chars)
	if !strings.Contains(got, "Visible text") {
		t.Fatalf("got %q, missing visible body text", got)
	}
	if strings.Contains(got, "hidden") || strings.Contains(got, "color:red") {
		t.Fatalf("got %q, script/style content must be skipped", got)
	}
}

func TestParseXMLConcatenatesTextNodes(t *testing.T) {
	dir := t.TempDir()
	xmlDoc := `<root><a>first</a><b>second</b></root>`
	path := writeTempFile(t, dir, "doc.xml", xmlDoc)

	chars, err := ContentsByFileType(path)
	if err != nil {
		t.Fatalf("ContentsByFileType: %v", err)
	}
	got := string(chars)
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Fatalf("got %q, missing expected text nodes", got)
	}
}

func buildMinimalDocx(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	documentXML := `<?xml version="1.0"?>
<w:document xmlns:w="x" xmlns:mc="y">
<w:body>
<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>
<mc:AlternateContent>
<mc:Choice><w:p><w:r><w:t>ShouldBeSkipped</w:t></w:r></w:p></mc:Choice>
</mc:AlternateContent>
</w:body>
</w:document>`
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zw.Create: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zw.Close: %v", err)
	}
}

func TestParseDocxExtractsRunTextAndSkipsChoice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	buildMinimalDocx(t, path)

	chars, err := ContentsByFileType(path)
	if err != nil {
		t.Fatalf("ContentsByFileType: %v", err)
	}
	got := string(chars)
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World") {
		t.Fatalf("got %q, missing expected run text", got)
	}
	if strings.Contains(got, "ShouldBeSkipped") {
		t.Fatalf("got %q, mc:Choice content must be excluded", got)
	}
}

func buildMinimalPDF(t *testing.T, path string) {
	t.Helper()
	var stream bytes.Buffer
	zw := zlib.NewWriter(&stream)
	if _, err := zw.Write([]byte(`BT /F1 12 Tf (Hello PDF) Tj ET`)); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	var pdf bytes.Buffer
	pdf.WriteString("%PDF-1.4\n")
	pdf.WriteString("1 0 obj\n<< /Length ")
	pdf.WriteString(itoa(stream.Len()))
	pdf.WriteString(" /Filter /FlateDecode >>\nstream\n")
	pdf.Write(stream.Bytes())
	pdf.WriteString("\nendstream\nendobj\n%%EOF")

	if err := os.WriteFile(path, pdf.Bytes(), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func TestParsePDFExtractsFlateDecodedTextLiterals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	buildMinimalPDF(t, path)

	chars, err := ContentsByFileType(path)
	if err != nil {
		t.Fatalf("ContentsByFileType: %v", err)
	}
	got := string(chars)
	if !strings.Contains(got, "Hello PDF") {
		t.Fatalf("got %q, missing expected extracted literal", got)
	}
}

func TestUnescapePDFLiteralHandlesOctalAndBackslashEscapes(t *testing.T) {
	got := unescapePDFLiteral([]byte(`line1\nline2\050paren\051`))
	want := "line1\nline2(paren)"
	if got != want {
		t.Fatalf("unescapePDFLiteral = %q, want %q", got, want)
	}
}
