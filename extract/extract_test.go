package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesBucketsByExtension(t *testing.T) {
	text := "I generated `output/chart.png` for you.\n" +
		"Saved to reports/summary.pdf\n" +
		"The raw numbers are in \"data/results.csv\".\n" +
		"See the script at ./scripts/analyze.py\n"

	files := Files(text)

	assert.Equal(t, []string{"output/chart.png"}, files.Images)
	assert.Equal(t, []string{"reports/summary.pdf"}, files.Reports)
	assert.Equal(t, []string{"data/results.csv"}, files.Data)
	assert.Equal(t, []string{"scripts/analyze.py"}, files.Code)
	assert.Empty(t, files.Other)
}

func TestFilesBase64Images(t *testing.T) {
	text := "Here is the chart inline: data:image/png;base64,AAAA and nothing else."

	files := Files(text)

	require.Len(t, files.Base64Images, 1)
	assert.Equal(t, "data:image/png;base64,AAAA", files.Base64Images[0])
}

func TestFilesMixedMentions(t *testing.T) {
	text := "Done! Chart at `output/chart.png`. Saved to reports/summary.pdf. " +
		"Preview: data:image/png;base64,AAAA"

	files := Files(text)

	assert.Equal(t, []string{"output/chart.png"}, files.Images)
	assert.Equal(t, []string{"reports/summary.pdf"}, files.Reports)
	assert.Equal(t, []string{"data:image/png;base64,AAAA"}, files.Base64Images)
	assert.Empty(t, files.Data)
	assert.Empty(t, files.Code)
	assert.Empty(t, files.Other)
}

func TestFilesIsIdempotent(t *testing.T) {
	text := "Saved to output/plot.png\n- output/plot.png\n`output/plot.png`"

	first := Files(text)
	second := Files(text)

	// A path matched by several rules appears once in its bucket
	assert.Equal(t, []string{"output/plot.png"}, first.Images)
	assert.Equal(t, first, second)
}

func TestFilesBulletPaths(t *testing.T) {
	text := "Generated artifacts:\n" +
		"- output/report.html\n" +
		"* visualizations/trend.svg\n"

	files := Files(text)

	assert.Contains(t, files.Reports, "output/report.html")
	assert.Contains(t, files.Images, "visualizations/trend.svg")
}

func TestFilesIgnoresUnknownExtensions(t *testing.T) {
	files := Files("Compiled to `build/app.wasm` and `bin/tool.exe`.")

	assert.True(t, files.Empty())
}

func TestFilesEmptyInput(t *testing.T) {
	assert.True(t, Files("").Empty())
	assert.True(t, Files("just words, no paths here").Empty())
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"backslashes", `output\chart.png`, "output/chart.png"},
		{"workspace absolute", "/tmp/analyst_coder_workspaces/sess-1/output/chart.png", "output/chart.png"},
		{"generic workspace marker", "/srv/workspaces/abc/reports/out.pdf", "reports/out.pdf"},
		{"redundant repo prefix", "repo/src/main.py", "src/main.py"},
		{"leading dot slash", "./data/x.csv", "data/x.csv"},
		{"already relative", "reports/summary.pdf", "reports/summary.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizePath(tt.in))
		})
	}
}
