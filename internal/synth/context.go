package synth

import (
	"strings"

	"github.com/FranksOps/beacon/internal/scraper"
)

// MaxContextLen caps the synthesized context in characters. The budget keeps
// prompts inside the model's window with room for the instruction scaffolding.
const MaxContextLen = 30000

// BuildContext concatenates the scraped pages into a prompt context. Pages
// with empty text are skipped. Each entry renders as
// "Source: <link>\nContent: <text>" and entries are joined with blank lines.
// The budget is enforced at entry boundaries so a source is either fully
// present or absent; a truncated source would invite citations to text the
// model never saw.
func BuildContext(pages []scraper.Page) string {
	var b strings.Builder

	for _, p := range pages {
		if p.Text == "" {
			continue
		}

		entry := "Source: " + p.Link + "\nContent: " + p.Text

		need := len(entry)
		if b.Len() > 0 {
			need += 2
		}
		if b.Len()+need > MaxContextLen {
			break
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(entry)
	}

	return b.String()
}
