package prep

import "strings"

// BriefHeading is the first line of every rendered brief.
const BriefHeading = "# Interview Prep Brief"

// Render turns a record into a Markdown brief. Sections follow schema order
// and are skipped when the key is absent or holds only blank text.
func Render(r Record) string {
	blocks := []string{BriefHeading}

	for _, f := range Fields {
		var body string
		switch f.Shape {
		case ShapeText:
			text, _ := r.Text(f.Key)
			body = strings.TrimSpace(text)
		case ShapeList:
			list, _ := r.List(f.Key)
			body = bullets(list)
		}
		if body == "" {
			continue
		}
		blocks = append(blocks, "## "+f.Title, body)
	}

	return strings.Join(blocks, "\n\n") + "\n"
}

func bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
