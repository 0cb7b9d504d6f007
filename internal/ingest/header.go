package ingest

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

// DefaultHeaderSearchLimit bounds how many leading rows are scanned for a
// header.
const DefaultHeaderSearchLimit = 20

//go:embed profiles.yaml
var builtinProfiles []byte

// Profile is a named set of header aliases, usually one per bank export.
type Profile struct {
	Name    string             `yaml:"name"`
	Aliases map[Field][]string `yaml:"aliases"`
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// DefaultProfiles returns the built-in alias profiles.
func DefaultProfiles() []Profile {
	profiles, err := decodeProfiles(builtinProfiles)
	if err != nil {
		panic("ingest: built-in profiles: " + err.Error())
	}
	return profiles
}

// LoadProfiles reads additional alias profiles from a YAML file.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadProfiles: reading %s: %w", path, err)
	}
	profiles, err := decodeProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("LoadProfiles: %s: %w", path, err)
	}
	return profiles, nil
}

func decodeProfiles(data []byte) ([]Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding profiles: %w", err)
	}
	for _, p := range f.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile without name")
		}
		for field := range p.Aliases {
			if !knownFields[field] {
				return nil, fmt.Errorf("profile %q: unknown field %q", p.Name, field)
			}
		}
	}
	return f.Profiles, nil
}

// HeaderMapper recognizes header rows using an ordered list of profiles.
type HeaderMapper struct {
	profiles []Profile
	limit    int
}

// NewHeaderMapper creates a mapper. A limit below 1 uses
// DefaultHeaderSearchLimit.
func NewHeaderMapper(profiles []Profile, limit int) *HeaderMapper {
	if limit < 1 {
		limit = DefaultHeaderSearchLimit
	}
	return &HeaderMapper{profiles: profiles, limit: limit}
}

func headerLabel(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Map matches every cell of row against the profiles. For each field the
// first matching column wins, and earlier profiles take precedence.
func (h *HeaderMapper) Map(row []string) Mapping {
	m := Mapping{}
	labels := make([]string, len(row))
	for i, cell := range row {
		labels[i] = headerLabel(cell)
	}

	for _, p := range h.profiles {
		for field, aliases := range p.Aliases {
			if m.has(field) {
				continue
			}
		columns:
			for i, label := range labels {
				if label == "" {
					continue
				}
				for _, alias := range aliases {
					if label == headerLabel(alias) {
						m[field] = i
						break columns
					}
				}
			}
		}
	}
	return m
}

// Find scans the first rows for a header. It returns the header index and
// its mapping, or ok=false when no row within the limit maps a date, a
// description and an amount source.
func (h *HeaderMapper) Find(ctx context.Context, rows [][]string) (int, Mapping, bool) {
	log := logger.FromContext(ctx)

	for i, row := range rows {
		if i >= h.limit {
			break
		}
		m := h.Map(row)
		if m.Complete() {
			log.Debug().Int("header_row", i).Interface("mapping", m).Msg("Header row found")
			return i, m, true
		}
	}

	log.Warn().Int("searched_rows", min(len(rows), h.limit)).Msg("No header row recognized, using positional columns")
	return -1, Mapping{}, false
}
