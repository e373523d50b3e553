package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// GuideData is the template input for a rendered migration guide.
type GuideData struct {
	SpecName   string
	Plan       *Plan
	TargetPath string
	BackupPath string
}

const guideTemplate = `# Migration Guide: {{ .SpecName }}

## Version Change
From: v{{ .Plan.FromVersion }}
To: v{{ .Plan.ToVersion }}

## Breaking Changes
{{- if .Plan.BreakingChanges }}
{{- range .Plan.BreakingChanges }}
- {{ . }}
{{- end }}
{{- else }}
- None recorded
{{- end }}

## Migration Steps
{{- range $i, $step := .Plan.MigrationSteps }}
{{ add $i 1 }}. {{ $step }}
{{- end }}

## Effort Estimate
- Complexity: {{ .Plan.EstimatedEffort }}
- Manual intervention required: {{ ternary "Yes" "No" .Plan.RequiresManualIntervention }}

## Files
- Implementation: {{ .TargetPath }}
{{- if .BackupPath }}
- Backup: {{ .BackupPath }}
{{- end }}

## Next Steps
1. Review the breaking changes above
2. Merge your custom logic into the regenerated artifact
3. Test thoroughly before deploying
4. Update any client code that depends on the changed API
`

var guideTmpl = template.Must(
	template.New("guide").Funcs(sprig.TxtFuncMap()).Parse(guideTemplate),
)

// WriteGuide renders a migration guide to disk.
func WriteGuide(path string, data GuideData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create guide dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create guide: %w", err)
	}
	defer f.Close()

	if err := guideTmpl.Execute(f, data); err != nil {
		return fmt.Errorf("render guide: %w", err)
	}
	return nil
}
