// Package extract pulls file references out of assistant free text.
//
// Assistant output is unstructured prose/markdown, not a typed payload, so
// extraction is heuristic: a union of independent regex rules maximizes
// recall at the cost of occasional false positives. Results only feed
// optional UI affordances (preview, download), never program control.
package extract

import (
	"path"
	"regexp"
	"strings"

	"parley/domain"
)

// Each rule matches one shape of file mention; submatch 1 is the path
var pathRules = []*regexp.Regexp{
	// "Saved to output/chart.png", "wrote report.pdf", "generated at ./a.csv"
	regexp.MustCompile(`(?i)\b(?:saved|wrote|written|created|generated|exported|output)\s+(?:to\s+|at\s+|as\s+|file\s+|in\s+)?` + "`?" + `([\w][\w./\\-]*\.[A-Za-z0-9]+)` + "`?"),
	// Backtick-quoted path: `output/chart.png`
	regexp.MustCompile("`" + `([\w./\\-]+\.[A-Za-z0-9]+)` + "`"),
	// Bullet-prefixed path: "- output/chart.png"
	regexp.MustCompile(`(?m)^\s*[-*•]\s+` + "`?" + `([\w./\\-]+\.[A-Za-z0-9]+)` + "`?" + `\s*$`),
	// Path under a known output directory
	regexp.MustCompile(`\b((?:output|outputs|reports|results|visualizations)[/\\][\w./\\-]+\.[A-Za-z0-9]+)`),
	// Relative path starting with a directory marker: "./data/x.csv"
	regexp.MustCompile(`(\.{1,2}[/\\][\w./\\-]+\.[A-Za-z0-9]+)`),
	// Double- or single-quoted path
	regexp.MustCompile(`"([\w./\\-]+\.[A-Za-z0-9]+)"`),
	regexp.MustCompile(`'([\w./\\-]+\.[A-Za-z0-9]+)'`),
}

// Inline base64 image data
var base64ImageRule = regexp.MustCompile(`data:image/(?:png|jpe?g|gif|svg\+xml);base64,[A-Za-z0-9+/=]+`)

// Workspace markers: a path containing one is rewritten relative to it
var workspaceMarkers = []string{"analyst_coder_workspaces/", "workspaces/", "workspace/"}

// Files scans assistant text for file references and inline images. It is a
// pure function of its input: no shared state, safe to call concurrently,
// and identical text always yields identical results.
func Files(text string) domain.ExtractedFiles {
	var out domain.ExtractedFiles

	seen := make(map[string]bool)
	for _, rule := range pathRules {
		for _, match := range rule.FindAllStringSubmatch(text, -1) {
			p := normalizePath(match[1])
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true

			switch bucketFor(p) {
			case bucketImage:
				out.Images = append(out.Images, p)
			case bucketReport:
				out.Reports = append(out.Reports, p)
			case bucketData:
				out.Data = append(out.Data, p)
			case bucketCode:
				out.Code = append(out.Code, p)
			}
			// Unrecognized extensions are ignored
		}
	}

	seenURI := make(map[string]bool)
	for _, uri := range base64ImageRule.FindAllString(text, -1) {
		if seenURI[uri] {
			continue
		}
		seenURI[uri] = true
		out.Base64Images = append(out.Base64Images, uri)
	}

	return out
}

type bucket int

const (
	bucketNone bucket = iota
	bucketImage
	bucketReport
	bucketData
	bucketCode
)

func bucketFor(p string) bucket {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	switch ext {
	case "png", "jpg", "jpeg", "gif", "svg":
		return bucketImage
	case "pdf", "xlsx", "xls", "html", "md":
		return bucketReport
	case "csv", "json":
		return bucketData
	case "py", "txt":
		return bucketCode
	default:
		return bucketNone
	}
}

// normalizePath rewrites backslashes, strips workspace-absolute prefixes down
// to the path relative to the workspace, and drops a redundant repository
// root prefix once.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimSpace(strings.Trim(p, "`'\""))

	for _, marker := range workspaceMarkers {
		if idx := strings.Index(p, marker); idx >= 0 {
			p = p[idx+len(marker):]
			// The segment right after the marker is the session id
			if slash := strings.Index(p, "/"); slash >= 0 {
				p = p[slash+1:]
			}
			break
		}
	}

	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "repo/")
	p = strings.TrimPrefix(p, "/")

	return p
}
