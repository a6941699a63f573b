package recommend

import (
	"bytes"
	"text/template"
	"time"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

// draftTemplate is the fixed markdown template spec.md §4.7 requires
// ("rendered from a fixed template keyed to the snapshot and bundle").
const draftTemplate = `# Brand Signal: {{.Brand}} / {{.Tag}}

**Event:** {{.Event.Kind}} ({{.Event.Severity}}) on {{.Event.Day.Format "2006-01-02"}}
**Bundle:** ` + "`{{.BundleSHA256}}`" + `

## Confidence Snapshot
{{if .Snapshot -}}
| Factor | Value |
|---|---|
| Acceleration | {{printf "%.2f" .Snapshot.Factors.Acceleration}} |
| Intent | {{printf "%.2f" .Snapshot.Factors.Intent}} |
| Spread | {{printf "%.2f" .Snapshot.Factors.Spread}} |
| Baseline | {{printf "%.2f" .Snapshot.Factors.Baseline}} |
| Suppression | {{printf "%.2f" .Snapshot.Factors.Suppression}} |
| **Final** | **{{printf "%.2f" .Snapshot.Final}}** |
| Band | {{.Snapshot.Band}} |
{{else -}}
No confidence snapshot was found within the bundling window.
{{end}}
## Evidence Excerpts
{{range .Excerpts}}
- {{.}}
{{else}}
No sanitized excerpts were available for this event.
{{end}}
---
Generated {{.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}}. Approval and delivery happen downstream; this draft makes no claim of investment advice.
`

type draftView struct {
	Brand        string
	Tag          string
	Event        domain.SignalEvent
	Snapshot     *domain.ConfidenceScore
	BundleSHA256 string
	Excerpts     []string
	GeneratedAt  time.Time
}

// renderDraft fills the fixed template from the bundle and its content
// address.
func renderDraft(event domain.SignalEvent, bundle EvidenceBundle, bundleSHA256 string) ([]byte, error) {
	tmpl := template.Must(template.New("recommendation_draft").Parse(draftTemplate))

	view := draftView{
		Brand:        bundle.Brand,
		Tag:          bundle.Tag,
		Event:        event,
		Snapshot:     bundle.Snapshot,
		BundleSHA256: bundleSHA256,
		Excerpts:     bundle.Excerpts,
		GeneratedAt:  bundle.GeneratedAt,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
