package zipfilter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	// ManifestName is the archive entry holding the acquisition manifest.
	ManifestName = "manifest.json"

	// AcquisitionGenerator identifies audits produced by a multi-file acquisition.
	// Audits from any other generator are ignored.
	AcquisitionGenerator = "multifile-acquisition-api"

	FileNameKey = "mandiant/mir/agent/FileName"
	FilePathKey = "mandiant/mir/agent/FilePath"
)

// ManifestEntry maps a payload entry of the archive to the file it was acquired from.
type ManifestEntry struct {
	Payload  string `json:"payload" yaml:"payload"`
	FileName string `json:"file_name" yaml:"file_name"`
	FilePath string `json:"file_path" yaml:"file_path"`
}

// LogicalName joins path and name with the separator style of the path.
func (e ManifestEntry) LogicalName() string {
	if strings.Contains(e.FilePath, `\`) {
		return e.FilePath + `\` + e.FileName
	}
	return e.FilePath + "/" + e.FileName
}

// Manifest is the set of payload entries resolved from manifest.json.
type Manifest struct {
	entries map[string]ManifestEntry
	order   []string
}

// Lookup returns the entry registered for payload.
func (m *Manifest) Lookup(payload string) (ManifestEntry, bool) {
	e, ok := m.entries[payload]
	return e, ok
}

// Entries returns registered entries in manifest order.
func (m *Manifest) Entries() []ManifestEntry {
	out := make([]ManifestEntry, 0, len(m.order))
	for _, payload := range m.order {
		out = append(out, m.entries[payload])
	}
	return out
}

// Len returns the number of registered payloads.
func (m *Manifest) Len() int { return len(m.entries) }

type manifestDocument struct {
	Audits *[]manifestAudit `json:"audits"`
}

type manifestAudit struct {
	Generator *string           `json:"generator"`
	Results   *[]manifestResult `json:"results"`
}

type manifestResult struct {
	Payload  *string             `json:"payload"`
	Metadata *[]manifestMetadata `json:"metadata"`
}

type manifestMetadata struct {
	Name  json.RawMessage `json:"name"`
	Value json.RawMessage `json:"value"`
}

// ParseManifest reads an acquisition manifest from r.
//
// A document that is not valid JSON yields (nil, nil) so callers can fall back
// to raw entry names. Valid JSON missing required fields yields a
// *ManifestFormatError. accept filters file names: a FileName value is only
// recorded when accept returns true for it; a nil accept records every name.
// When a result carries several FileName or FilePath values the last recorded
// one wins.
func ParseManifest(r io.Reader, accept func(fileName string) bool) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	if !json.Valid(data) {
		return nil, nil
	}

	var doc manifestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ManifestFormatError{Msg: err.Error(), Index: -1}
	}

	if doc.Audits == nil {
		return nil, &ManifestFormatError{Msg: "audits missing from manifest", Index: -1}
	}

	manifest := &Manifest{entries: make(map[string]ManifestEntry)}

	for _, audit := range *doc.Audits {
		if audit.Generator == nil {
			return nil, &ManifestFormatError{Msg: "generator missing from audit", Index: -1}
		}
		if *audit.Generator != AcquisitionGenerator {
			continue
		}
		if audit.Results == nil {
			return nil, &ManifestFormatError{Msg: "results missing from audit", Index: -1}
		}

		for i, result := range *audit.Results {
			if result.Payload == nil {
				return nil, &ManifestFormatError{Msg: "payload missing", Index: i}
			}
			if result.Metadata == nil {
				return nil, &ManifestFormatError{Msg: "metadata missing", Index: i}
			}

			entry, ok, err := resolveResult(*result.Payload, *result.Metadata, accept)
			if err != nil {
				return nil, &ManifestFormatError{Msg: err.Error(), Index: i}
			}
			if ok {
				manifest.add(entry)
			}
		}
	}

	return manifest, nil
}

func resolveResult(payload string, metadata []manifestMetadata, accept func(string) bool) (ManifestEntry, bool, error) {
	var fileName, filePath *string

	for _, meta := range metadata {
		if meta.Name == nil || meta.Value == nil {
			continue
		}

		var name string
		if err := json.Unmarshal(meta.Name, &name); err != nil {
			continue
		}

		switch name {
		case FileNameKey:
			value, err := metadataString(name, meta.Value)
			if err != nil {
				return ManifestEntry{}, false, err
			}
			if accept == nil || accept(value) {
				fileName = &value
			}
		case FilePathKey:
			value, err := metadataString(name, meta.Value)
			if err != nil {
				return ManifestEntry{}, false, err
			}
			filePath = &value
		}
	}

	if fileName == nil || filePath == nil {
		return ManifestEntry{}, false, nil
	}

	return ManifestEntry{Payload: payload, FileName: *fileName, FilePath: *filePath}, true, nil
}

func metadataString(name string, raw json.RawMessage) (string, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%s value is not a string", name)
	}
	return value, nil
}

func (m *Manifest) add(e ManifestEntry) {
	if _, exists := m.entries[e.Payload]; !exists {
		m.order = append(m.order, e.Payload)
	}
	m.entries[e.Payload] = e
}
