package catalog

import "fmt"

const maxImportMessages = 50

// ImportResult summarizes an import. Messages holds the first row errors;
// line numbers count the header as row 1.
type ImportResult struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages,omitempty"`
}

func (r *ImportResult) Fail(line int, err error) {
	r.Errors++
	if len(r.Messages) < maxImportMessages {
		r.Messages = append(r.Messages, fmt.Sprintf("row %d: %v", line, err))
	}
}
