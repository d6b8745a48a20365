// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// esearch JSON structures (retmode=json). Counts arrive as strings.
type esearchResponse struct {
	Error  string         `json:"error"`
	Result *esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count            string   `json:"count"`
	RetMax           string   `json:"retmax"`
	RetStart         string   `json:"retstart"`
	QueryKey         string   `json:"querykey"`
	WebEnv           string   `json:"webenv"`
	IDList           []string `json:"idlist"`
	QueryTranslation string   `json:"querytranslation"`
	Error            string   `json:"ERROR"`
}

func (r *esearchResult) count() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.Count))
	if err != nil {
		return 0, fmt.Errorf("parsing esearch count %q: %w", r.Count, err)
	}
	return n, nil
}

func parseESearch(body []byte) (*esearchResult, error) {
	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	if resp.Error != "" {
		return nil, &APIError{Op: "esearch", Message: resp.Error}
	}
	if resp.Result == nil {
		return nil, &APIError{Op: "esearch", Message: "response has no esearchresult"}
	}
	if resp.Result.Error != "" {
		return nil, &APIError{Op: "esearch", Message: resp.Result.Error}
	}
	return resp.Result, nil
}
