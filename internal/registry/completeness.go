package registry

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	dErrors "uadcheck/pkg/domain-errors"
)

// SignatureRequirements lists the payload paths that must be complete
// before an appraiser signature is accepted.
type SignatureRequirements struct {
	Certifications []string
	Photos         []string
	Sections       map[string][]string
}

// pathList decodes a JSON array keeping only non-blank string entries.
type pathList []string

func (p *pathList) UnmarshalJSON(data []byte) error {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(pathList, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	*p = out
	return nil
}

type signatureJSON struct {
	Requirements struct {
		Certifications pathList            `json:"certifications"`
		Photos         pathList            `json:"photos"`
		Sections       map[string]pathList `json:"sections"`
	} `json:"requirements"`
}

// ParseSignatureRequirements decodes a signature dependency document.
func ParseSignatureRequirements(data []byte) (SignatureRequirements, error) {
	var raw signatureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return SignatureRequirements{}, dErrors.Wrap(err, dErrors.CodeConfigInvalid, "decode signature requirements")
	}
	req := SignatureRequirements{
		Certifications: raw.Requirements.Certifications,
		Photos:         raw.Requirements.Photos,
	}
	if len(raw.Requirements.Sections) > 0 {
		req.Sections = make(map[string][]string, len(raw.Requirements.Sections))
		for key, paths := range raw.Requirements.Sections {
			req.Sections[key] = paths
		}
	}
	return req, nil
}

// Paths returns every required path in check order: certifications, then
// photos, then sections by sorted key.
func (s SignatureRequirements) Paths() []string {
	paths := make([]string, 0, len(s.Certifications)+len(s.Photos))
	paths = append(paths, s.Certifications...)
	paths = append(paths, s.Photos...)
	keys := make([]string, 0, len(s.Sections))
	for key := range s.Sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		paths = append(paths, s.Sections[key]...)
	}
	return paths
}

// Empty reports whether no paths are configured.
func (s SignatureRequirements) Empty() bool {
	return len(s.Paths()) == 0
}

// PhotoRequirement maps an external photo field code onto a payload path.
type PhotoRequirement struct {
	Code        string `json:"azure_code"`
	PayloadPath string `json:"payload_path"`
}

// ParsePhotoInventory decodes a photo inventory document given either as
// a list of entries or as {"required": [...]}. Entries lacking a code or
// path are dropped.
func ParsePhotoInventory(data []byte) ([]PhotoRequirement, error) {
	trimmed := bytes.TrimSpace(data)
	var entries []PhotoRequirement
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConfigInvalid, "decode photo inventory")
		}
	} else {
		var wrapped struct {
			Required []PhotoRequirement `json:"required"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConfigInvalid, "decode photo inventory")
		}
		entries = wrapped.Required
	}

	out := make([]PhotoRequirement, 0, len(entries))
	for _, e := range entries {
		e.Code = strings.TrimSpace(e.Code)
		e.PayloadPath = strings.TrimSpace(e.PayloadPath)
		if e.Code == "" || e.PayloadPath == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
