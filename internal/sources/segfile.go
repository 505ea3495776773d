package sources

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dqstack/veto-engine/internal/utils"
	"github.com/dqstack/veto-engine/pkg/segments"
)

// FlagData is segment data for one flag as delivered by one source.
// The same flag may arrive from several sources; the registry unions
// them.
type FlagData struct {
	Instrument string
	Flag       string
	Active     segments.List
	Coverage   segments.List
}

type segmentJSONFile struct {
	Instrument string            `json:"instrument"`
	Span       *segments.Segment `json:"span"`
	Flags      []segmentJSONFlag `json:"flags"`
}

type segmentJSONFlag struct {
	Name     string        `json:"name"`
	Active   segments.List `json:"active"`
	Coverage segments.List `json:"coverage"`
}

// LoadSegmentFile reads flag segment data from path. JSON documents
// may carry several flags; the plain text segwizard layout carries one
// flag per file.
func LoadSegmentFile(path string) ([]FlagData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewAppError("sources.LoadSegmentFile", "read segment file", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseSegmentJSON(path, data)
	case ".seg", ".txt":
		return parseSegmentText(path, data)
	default:
		return nil, utils.NewAppError("sources.LoadSegmentFile",
			fmt.Sprintf("unsupported segment format %q", filepath.Ext(path)), nil)
	}
}

func parseSegmentJSON(path string, data []byte) ([]FlagData, error) {
	var file segmentJSONFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, utils.NewAppError("sources.LoadSegmentFile", fmt.Sprintf("decode %s", path), err)
	}
	if file.Instrument == "" {
		return nil, utils.NewAppError("sources.LoadSegmentFile", fmt.Sprintf("%s: missing instrument", path), nil)
	}
	out := make([]FlagData, 0, len(file.Flags))
	for _, f := range file.Flags {
		if f.Name == "" {
			return nil, utils.NewAppError("sources.LoadSegmentFile", fmt.Sprintf("%s: flag with empty name", path), nil)
		}
		coverage := segments.NewList(f.Coverage...)
		if len(coverage) == 0 {
			if file.Span == nil {
				return nil, utils.NewAppError("sources.LoadSegmentFile",
					fmt.Sprintf("%s: flag %s has no coverage and the file declares no span", path, f.Name), nil)
			}
			coverage = segments.NewList(*file.Span)
		}
		out = append(out, FlagData{
			Instrument: file.Instrument,
			Flag:       f.Name,
			Active:     segments.NewList(f.Active...),
			Coverage:   coverage,
		})
	}
	return out, nil
}

// parseSegmentText reads the four-column segwizard layout: index,
// start, end, duration, with '#' comment lines. The flag name comes
// from a '# flag:' header; an optional '# span:' header supplies the
// coverage, falling back to the extent of the active segments.
func parseSegmentText(path string, data []byte) ([]FlagData, error) {
	var (
		flagName string
		span     *segments.Segment
		segs     []segments.Segment
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			directive := strings.TrimSpace(strings.TrimPrefix(text, "#"))
			switch {
			case strings.HasPrefix(directive, "flag:"):
				flagName = strings.TrimSpace(strings.TrimPrefix(directive, "flag:"))
			case strings.HasPrefix(directive, "span:"):
				parts := strings.Fields(strings.TrimPrefix(directive, "span:"))
				if len(parts) != 2 {
					return nil, textErr(path, line, "span directive wants two endpoints", nil)
				}
				start, end, err := parseEndpoints(parts[0], parts[1])
				if err != nil {
					return nil, textErr(path, line, "bad span", err)
				}
				seg, err := segments.New(start, end)
				if err != nil {
					return nil, textErr(path, line, "bad span", err)
				}
				span = &seg
			}
			continue
		}

		fields := strings.Fields(text)
		var startField, endField string
		switch len(fields) {
		case 2:
			startField, endField = fields[0], fields[1]
		case 4:
			startField, endField = fields[1], fields[2]
		default:
			return nil, textErr(path, line, fmt.Sprintf("want 2 or 4 columns, got %d", len(fields)), nil)
		}
		start, end, err := parseEndpoints(startField, endField)
		if err != nil {
			return nil, textErr(path, line, "bad endpoints", err)
		}
		seg, err := segments.New(start, end)
		if err != nil {
			return nil, textErr(path, line, "bad segment", err)
		}
		if len(fields) == 4 {
			dur, err := strconv.ParseInt(fields[3], 10, 64)
			if err != nil {
				return nil, textErr(path, line, "bad duration", err)
			}
			if dur != seg.Duration() {
				return nil, textErr(path, line,
					fmt.Sprintf("duration %d does not match %s", dur, seg), nil)
			}
		}
		segs = append(segs, seg)
	}
	if err := scanner.Err(); err != nil {
		return nil, utils.NewAppError("sources.LoadSegmentFile", fmt.Sprintf("read %s", path), err)
	}
	if flagName == "" {
		return nil, utils.NewAppError("sources.LoadSegmentFile",
			fmt.Sprintf("%s: missing '# flag:' header", path), nil)
	}
	instrument, ok := instrumentFromFlag(flagName)
	if !ok {
		return nil, utils.NewAppError("sources.LoadSegmentFile",
			fmt.Sprintf("%s: cannot derive instrument from flag %q", path, flagName), nil)
	}

	active := segments.NewList(segs...)
	var coverage segments.List
	if span != nil {
		coverage = segments.NewList(*span)
	} else if ext, extOK := active.Extent(); extOK {
		coverage = segments.NewList(ext)
	}
	return []FlagData{{
		Instrument: instrument,
		Flag:       flagName,
		Active:     active,
		Coverage:   coverage,
	}}, nil
}

func parseEndpoints(startField, endField string) (int64, int64, error) {
	start, err := strconv.ParseInt(startField, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("start %q: %w", startField, err)
	}
	end, err := strconv.ParseInt(endField, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("end %q: %w", endField, err)
	}
	return start, end, nil
}

// instrumentFromFlag derives the instrument from the conventional
// IFO:NAME:VERSION flag naming, e.g. "H1:DMT-OVERFLOW:1" gives "H1".
func instrumentFromFlag(name string) (string, bool) {
	prefix, _, found := strings.Cut(name, ":")
	if !found || prefix == "" {
		return "", false
	}
	return prefix, true
}

func textErr(path string, line int, msg string, cause error) error {
	return utils.NewAppError("sources.LoadSegmentFile", fmt.Sprintf("%s:%d: %s", path, line, msg), cause)
}
