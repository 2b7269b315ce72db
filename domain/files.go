package domain

// ExtractedFiles holds file references pulled out of assistant free text,
// bucketed by extension. Derived transiently from message content; never
// persisted, recomputed on each use.
type ExtractedFiles struct {
	Images       []string // png, jpg, jpeg, gif, svg
	Reports      []string // pdf, xlsx, xls, html, md
	Data         []string // csv, json
	Code         []string // py, txt
	Other        []string // reserved for extensibility; the extractor leaves it empty
	Base64Images []string // inline data:image/...;base64 URIs
}

// Empty reports whether nothing was extracted
func (e ExtractedFiles) Empty() bool {
	return len(e.Images) == 0 && len(e.Reports) == 0 && len(e.Data) == 0 &&
		len(e.Code) == 0 && len(e.Other) == 0 && len(e.Base64Images) == 0
}

// Total returns the number of extracted path references (excluding inline images)
func (e ExtractedFiles) Total() int {
	return len(e.Images) + len(e.Reports) + len(e.Data) + len(e.Code) + len(e.Other)
}
