package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// metadataHeader marks the start of the comment block that carries
// template metadata inside a ZPL body. Each following ^FX line holds a
// single `key: value` pair.
const metadataHeader = "Template Metadata"

// Metadata is the set of fields stored in a template's leading ^FX
// comment block. Unknown keys are preserved in Extra so editing a
// template never silently drops them.
type Metadata struct {
	Name        string
	Description string
	Size        string
	SizeUnit    string
	SizeWidth   float64
	SizeHeight  float64
	Variables   []string
	Created     string
	Modified    string
	Extra       map[string]string
}

// ParseMetadata extracts the metadata block from a template body. The
// block ends at the first line that is not a ^FX comment. A stored size
// with no recorded unit is treated as inches, matching records written
// before units were tracked.
func ParseMetadata(body string) Metadata {
	meta := Metadata{}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.EqualFold(trimmed, "^XA") {
			continue
		}
		if !strings.HasPrefix(trimmed, "^FX") {
			break
		}

		comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "^FX"))
		if strings.EqualFold(comment, metadataHeader) {
			continue
		}

		key, value, ok := strings.Cut(comment, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "name":
			meta.Name = value
		case "description":
			meta.Description = value
		case "size":
			meta.Size = value
		case "size_unit":
			meta.SizeUnit = value
		case "size_width":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				meta.SizeWidth = f
			}
		case "size_height":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				meta.SizeHeight = f
			}
		case "variables":
			meta.Variables = splitVariableList(value)
		case "created":
			meta.Created = value
		case "modified":
			meta.Modified = value
		default:
			if meta.Extra == nil {
				meta.Extra = make(map[string]string)
			}
			meta.Extra[key] = value
		}
	}

	if meta.Size != "" && meta.SizeUnit == "" {
		meta.SizeUnit = "inches"
	}

	return meta
}

// BuildBody assembles a complete template body: ^XA, the metadata
// block, a blank separator line, then the content with any previous
// metadata block and leading ^XA stripped.
func BuildBody(content string, meta Metadata) string {
	var b strings.Builder
	b.WriteString("^XA\n")
	b.WriteString("^FX " + metadataHeader + "\n")

	writeField := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "^FX %s: %s\n", key, value)
		}
	}

	writeField("name", meta.Name)
	writeField("description", meta.Description)
	writeField("size", meta.Size)
	writeField("size_unit", meta.SizeUnit)
	if meta.SizeWidth > 0 {
		writeField("size_width", strconv.FormatFloat(meta.SizeWidth, 'f', -1, 64))
	}
	if meta.SizeHeight > 0 {
		writeField("size_height", strconv.FormatFloat(meta.SizeHeight, 'f', -1, 64))
	}
	if len(meta.Variables) > 0 {
		writeField("variables", strings.Join(meta.Variables, ", "))
	}
	writeField("created", meta.Created)
	writeField("modified", meta.Modified)
	for _, key := range sortedKeys(meta.Extra) {
		writeField(key, meta.Extra[key])
	}

	b.WriteString("\n")
	b.WriteString(stripMetadataBlock(content))

	return b.String()
}

// stripMetadataBlock removes the leading ^XA and any metadata comment
// lines from content, leaving the printable ZPL.
func stripMetadataBlock(content string) string {
	lines := strings.Split(content, "\n")
	start := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.EqualFold(trimmed, "^XA") {
			start = i + 1
			continue
		}
		if strings.HasPrefix(trimmed, "^FX") {
			start = i + 1
			continue
		}
		break
	}

	return strings.TrimLeft(strings.Join(lines[start:], "\n"), "\n")
}

func splitVariableList(value string) []string {
	var vars []string
	for _, part := range strings.Split(value, ",") {
		if v := strings.TrimSpace(part); v != "" {
			vars = append(vars, v)
		}
	}
	return vars
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
