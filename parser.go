package knowsearch

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PARSER ADAPTER: path → normalized character vector
// ═══════════════════════════════════════════════════════════════════════════════
// Dispatch is by lowercased extension. Every parser's output has all '\r'
// stripped and every '\n' replaced by a single space; an empty result is
// "none", not an error.
// ═══════════════════════════════════════════════════════════════════════════════

// ContentsByFileType dispatches path to the parser matching its extension.
// chars is nil (with err nil) for an unknown extension or empty content.
func ContentsByFileType(path string) (chars []rune, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		chars, err = parseTxt(path)
	case ".html", ".htm":
		chars, err = parseHTML(path)
	case ".xhtml", ".xml":
		chars, err = parseXML(path)
	case ".docx":
		chars, err = parseDocx(path)
	case ".pdf":
		chars, err = parsePDF(path)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(chars) == 0 {
		return nil, nil
	}
	return chars, nil
}

// normalizeNewlines strips '\r' and replaces '\n' with a single space, the
// common postprocessing step every parser applies.
func normalizeNewlines(s string) []rune {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\r':
			continue
		case '\n':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return []rune(b.String())
}

func parseTxt(path string) ([]rune, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return normalizeNewlines(string(data)), nil
}

// parseHTML extracts rendered text, skipping the contents of <script> and
// <style> elements.
func parseHTML(path string) ([]rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sb strings.Builder
	skipDepth := 0
	tok := html.NewTokenizer(f)
	for {
		switch tok.Next() {
		case html.ErrorToken:
			if tok.Err() == io.EOF {
				return normalizeNewlines(sb.String()), nil
			}
			return nil, tok.Err()
		case html.StartTagToken:
			name, _ := tok.TagName()
			if isSkippedHTMLTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			if isSkippedHTMLTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tok.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func isSkippedHTMLTag(name string) bool {
	return name == "script" || name == "style"
}

// parseXML concatenates text-node contents, each followed by a space.
func parseXML(path string) ([]rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	text, err := extractXMLText(f)
	if err != nil {
		return nil, err
	}
	return normalizeNewlines(text), nil
}

func extractXMLText(r io.Reader) (string, error) {
	var sb strings.Builder
	dec := xml.NewDecoder(r)
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
			sb.WriteByte(' ')
		}
	}
	return sb.String(), nil
}

// extractDocxRunText walks word-processing XML, emitting characters only
// while inside a w:t element and not inside an mc:Choice element, with a
// trailing space after each run.
func extractDocxRunText(r io.Reader) (string, error) {
	var sb strings.Builder
	inText := false
	inChoice := false

	dec := xml.NewDecoder(r)
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Choice":
				inChoice = true
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "Choice":
				inChoice = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && !inChoice {
				sb.Write(t)
				sb.WriteByte(' ')
			}
		}
	}
	return sb.String(), nil
}

func zipOpen(zr *zip.Reader, name string) (io.ReadCloser, bool) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, false
			}
			return rc, true
		}
	}
	return nil, false
}

func zipReadText(zr *zip.Reader, name string) (string, bool, error) {
	rc, ok := zipOpen(zr, name)
	if !ok {
		return "", false, nil
	}
	defer rc.Close()
	text, err := extractDocxRunText(rc)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// parseDocx opens path as a zip container and concatenates text from
// word/document.xml plus the optional footnotes/endnotes/comments and every
// header*/footer* part.
func parseDocx(path string) ([]rune, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var sb strings.Builder

	document, _, err := zipReadText(&zr.Reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	sb.WriteString(document)

	for _, optional := range []string{"word/footnotes.xml", "word/endnotes.xml", "word/comments.xml"} {
		text, ok, err := zipReadText(&zr.Reader, optional)
		if err != nil {
			return nil, err
		}
		if ok {
			sb.WriteString(text)
		}
	}

	for _, f := range zr.File {
		if !strings.Contains(f.Name, "word/header") && !strings.Contains(f.Name, "word/footer") {
			continue
		}
		text, ok, err := zipReadText(&zr.Reader, f.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			sb.WriteString(text)
		}
	}

	return normalizeNewlines(sb.String()), nil
}

// ─── pdf: minimal content-stream text scanner (stdlib only) ───────────────

var (
	pdfStreamRE  = regexp.MustCompile(`(?s)<<(.*?)>>\s*stream\r?\n(.*?)\r?\n?endstream`)
	pdfLiteralRE = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
)

// parsePDF extracts text from a PDF's content streams: it locates every
// stream object, inflates it if the dictionary declares /FlateDecode, then
// pulls every parenthesized string literal out of the decoded operators,
// the Tj/TJ text-showing arguments. It does not interpret glyph encodings,
// fonts, or layout; it is a scanner, not a renderer.
func parsePDF(path string) ([]rune, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, match := range pdfStreamRE.FindAllSubmatch(data, -1) {
		dict, body := match[1], match[2]
		content := body
		if bytes.Contains(dict, []byte("FlateDecode")) {
			inflated, err := inflate(body)
			if err != nil {
				continue
			}
			content = inflated
		}
		sb.WriteString(extractPDFLiterals(content))
	}
	return normalizeNewlines(sb.String()), nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func extractPDFLiterals(content []byte) string {
	var sb strings.Builder
	for _, match := range pdfLiteralRE.FindAllSubmatch(content, -1) {
		sb.WriteString(unescapePDFLiteral(match[1]))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func unescapePDFLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i == len(raw)-1 {
			sb.WriteByte(raw[i])
			continue
		}
		next := raw[i+1]
		switch next {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '(', ')', '\\':
			sb.WriteByte(next)
		default:
			if next >= '0' && next <= '7' && i+3 < len(raw) {
				if code, err := strconv.ParseInt(string(raw[i+1:i+4]), 8, 32); err == nil {
					sb.WriteByte(byte(code))
					i += 3
					continue
				}
			}
			sb.WriteByte(next)
		}
		i++
	}
	return sb.String()
}
