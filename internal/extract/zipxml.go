package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// openZip opens an OOXML/OpenDocument package; format is used in error messages.
func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

// readZipFile returns the contents of the named entry, or nil when it is absent.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

var trailingNumber = regexp.MustCompile(`(\d+)\.xml$`)

// numberedEntries returns entry names with the given prefix, ordered by the
// number before ".xml" (slide2.xml before slide10.xml).
func numberedEntries(zr *zip.Reader, prefix string) []string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && trailingNumber.MatchString(f.Name) {
			names = append(names, f.Name)
		}
	}
	num := func(name string) int {
		m := trailingNumber.FindStringSubmatch(name)
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(names, func(i, j int) bool { return num(names[i]) < num(names[j]) })
	return names
}

// joinMatches joins the first capture group of every match of re in s with sep.
func joinMatches(re *regexp.Regexp, s, sep string) string {
	parts := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(xmlUnescape(p[1])); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, sep)
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func xmlUnescape(s string) string {
	return xmlEntities.Replace(s)
}
