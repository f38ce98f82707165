package parrec

import (
	"bufio"
	"bytes"
	"io"
	"log"
	"strings"

	"github.com/carbocation/pfx"
)

// ParseHeader reads a PAR header from r and returns the general
// information and the image definition table, in file order. Comment
// lines are skipped, except that the export-tool comment carrying the
// header version triggers a warning when the version is one we have no
// samples of; parsing continues regardless.
func ParseHeader(r io.Reader) (GeneralInfo, []ImageDef, error) {
	info, defs, _, err := parseHeaderText(r)
	return info, defs, err
}

func parseHeaderText(r io.Reader) (GeneralInfo, []ImageDef, []byte, error) {
	var info GeneralInfo
	var defs []ImageDef
	var raw bytes.Buffer

	scanner := bufio.NewScanner(io.TeeReader(r, &raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			if strings.Contains(line, "image export tool") {
				fields := strings.Fields(line)
				version := fields[len(fields)-1]
				if !supportedVersions[version] {
					log.Printf("Warning: PAR/REC version %q is not supported; attempting to read anyway, but geometry is not guaranteed", version)
				}
			}
		case strings.HasPrefix(line, "."):
			body := strings.TrimSpace(strings.TrimPrefix(line, "."))
			colon := strings.Index(body, ":")
			if colon < 0 {
				continue
			}
			key := strings.TrimSpace(body[:colon])
			value := strings.TrimSpace(body[colon+1:])
			if err := setGeneralField(&info, key, value); err != nil {
				return info, nil, nil, err
			}
		default:
			def, err := parseImageDef(strings.Fields(line))
			if err != nil {
				return info, nil, nil, err
			}
			defs = append(defs, def)
		}
	}
	if err := scanner.Err(); err != nil {
		return info, nil, nil, pfx.Err(err)
	}

	return info, defs, raw.Bytes(), nil
}
