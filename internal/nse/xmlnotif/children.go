package xmlnotif

import (
	"encoding/xml"
	"io"
	"strings"
)

// TopLevelElements splits fragment into its top-level sibling elements,
// returning the raw outer XML of each as found in the original text. The
// Send Dispatcher uses this to walk a notification body's children
// (excluding eventTime) one at a time for filtering (spec.md §4.I).
func TopLevelElements(fragment string) ([][]byte, error) {
	dec := xml.NewDecoder(strings.NewReader(fragment))

	var out [][]byte
	depth := 0
	var start int64
	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		switch tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				start = offset
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				out = append(out, []byte(fragment[start:dec.InputOffset()]))
			}
		}
	}
}
