package formatter

import (
	"fmt"
	"strings"

	figmaassets "github.com/hellenic-development/figma-assets"
	"github.com/hellenic-development/figma-assets/pkg/locator"
)

// ToMarkdown renders the outcome of an export run as a markdown document: what was
// requested, every asset that was written and every asset that failed, with the reason.
func ToMarkdown(result *figmaassets.Result) string {
	var sb strings.Builder
	opts := result.Options

	sb.WriteString(fmt.Sprintf("# Figma Asset Export - %s\n\n", opts.PageName))

	sb.WriteString("## Source\n\n")
	sb.WriteString(fmt.Sprintf("- **File**: `%s`\n", result.FileKey))
	sb.WriteString(fmt.Sprintf("- **Page**: %s\n", opts.PageName))
	if opts.FrameName != "" {
		sb.WriteString(fmt.Sprintf("- **Frame**: %s\n", opts.FrameName))
	}
	sb.WriteString(fmt.Sprintf("- **Format**: %s\n", strings.ToUpper(opts.Format)))
	sb.WriteString(fmt.Sprintf("- **Scale**: %gx\n", opts.Scale))
	sb.WriteString(fmt.Sprintf("- **Assets Directory**: `%s`\n", opts.AssetsPath))
	sb.WriteString("\n")

	switch result.Lookup.Status {
	case locator.StatusError:
		sb.WriteString("## Lookup Failed\n\n")
		sb.WriteString(fmt.Sprintf("%v\n\nNo assets were exported.\n", result.Lookup.Err))
		return sb.String()
	case locator.StatusEmpty:
		sb.WriteString("No assets were found on the page.\n")
		return sb.String()
	}

	report := result.Report
	saved := report.Saved()
	failed := report.Failed()

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Located**: %d\n", len(result.Lookup.Assets)))
	sb.WriteString(fmt.Sprintf("- **Rendered**: %d\n", len(result.Exports)))
	sb.WriteString(fmt.Sprintf("- **Saved**: %d\n", len(saved)))
	sb.WriteString(fmt.Sprintf("- **Failed**: %d\n", len(failed)))
	sb.WriteString("\n")

	if len(result.Exports) == 0 {
		sb.WriteString("The render request failed; no images were downloaded.\n")
		return sb.String()
	}

	if len(saved) > 0 {
		sb.WriteString("## Exported Assets\n\n")
		sb.WriteString("| Asset | File | Size |\n")
		sb.WriteString("|-------|------|------|\n")
		for _, o := range saved {
			sb.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", escapeCell(o.Name), o.Path, humanSize(o.Bytes)))
		}
		sb.WriteString("\n")
	}

	if len(result.Lookup.Components) > 0 {
		sb.WriteString("## Components\n\n")
		sb.WriteString("| Asset | Set | Description |\n")
		sb.WriteString("|-------|-----|-------------|\n")
		for _, a := range result.Lookup.Assets {
			c, ok := result.Lookup.Components[a.ID]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", escapeCell(a.Name), escapeCell(c.Set), escapeCell(oneLine(c.Description))))
		}
		sb.WriteString("\n")
	}

	if len(failed) > 0 {
		sb.WriteString("## Failed Assets\n\n")
		for _, o := range failed {
			sb.WriteString(fmt.Sprintf("- **%s**: %v\n", o.Name, errorCause(o.Err)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// errorCause strips the asset name and path already shown next to the error.
func errorCause(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok && u.Unwrap() != nil {
		return u.Unwrap()
	}
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
