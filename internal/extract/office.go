package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strings"
)

// maxPartBytes bounds how much of one XML part is read from a package.
const maxPartBytes = 32 << 20

var errNoBody = errors.New("no document body found")

// officeFormat describes where a zipped office format keeps its text. Each paragraph
// match becomes one output line built from the run matches inside it.
type officeFormat struct {
	isBody    func(name string) bool
	paragraph *regexp.Regexp
	run       *regexp.Regexp
	// wrapRuns surrounds the paragraph body with > and < so text outside child
	// elements is matched by a >text< run pattern.
	wrapRuns bool
}

var (
	docxFormat = officeFormat{
		isBody:    func(name string) bool { return name == "word/document.xml" },
		paragraph: regexp.MustCompile(`(?s)<w:p(?:\s[^>]*[^/])?>(.*?)</w:p>`),
		run:       regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`),
	}
	pptxFormat = officeFormat{
		isBody: func(name string) bool {
			return strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml")
		},
		paragraph: regexp.MustCompile(`(?s)<a:p(?:\s[^>]*[^/])?>(.*?)</a:p>`),
		run:       regexp.MustCompile(`<a:t>([^<]*)</a:t>`),
	}
	// odfFormat covers .odt, .ods and .odp; all keep their body in content.xml.
	odfFormat = officeFormat{
		isBody:    func(name string) bool { return name == "content.xml" },
		paragraph: regexp.MustCompile(`(?s)<text:(?:p|h)(?:\s[^>]*[^/])?>(.*?)</text:(?:p|h)>`),
		run:       regexp.MustCompile(`>([^<]*)<`),
		wrapRuns:  true,
	}
)

// extractOffice returns one line per non-empty paragraph of the package's body parts.
// Slides are read in numeric order.
func extractOffice(data []byte, format officeFormat) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a zip package: %w", err)
	}
	var parts []*zip.File
	for _, f := range zr.File {
		if format.isBody(f.Name) {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return "", errNoBody
	}
	sort.Slice(parts, func(i, j int) bool {
		a, b := parts[i].Name, parts[j].Name
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	var lines []string
	for _, f := range parts {
		body, err := readPart(f)
		if err != nil {
			return "", err
		}
		for _, p := range format.paragraph.FindAllSubmatch(body, -1) {
			inner := p[1]
			if format.wrapRuns {
				inner = append(append([]byte{'>'}, inner...), '<')
			}
			var b strings.Builder
			for _, r := range format.run.FindAllSubmatch(inner, -1) {
				b.Write(r[1])
			}
			if line := strings.TrimSpace(html.UnescapeString(b.String())); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPartBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}
