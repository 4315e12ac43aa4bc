package feed

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Payload formats a feed may serve.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var ErrUnknownSource = errors.New("unknown source")

// Source is a remote compromise list.
type Source struct {
	Name   string
	URL    string
	Format string
}

// Builtin are the named sources selectable with --source.
var Builtin = map[string]Source{
	"datadog": {
		Name:   "datadog",
		URL:    "https://raw.githubusercontent.com/DataDog/indicators-of-compromise/main/shai-hulud-2.0/consolidated_iocs.csv",
		Format: FormatCSV,
	},
	"koi": {
		Name:   "koi",
		URL:    "https://docs.google.com/spreadsheets/d/16aw6s7mWoGU7vxBciTEZSaR5HaohlBTfVirvI-PypJc/export?format=csv&gid=1289659284",
		Format: FormatCSV,
	},
}

// BuiltinNames lists Builtin keys in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(Builtin))
	for name := range Builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All selects every built-in source.
const All = "all"

// Lookup resolves built-in source names. "all" expands to every built-in
// source; duplicates are dropped.
func Lookup(names []string) ([]Source, error) {
	out := make([]Source, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" || seen[key] {
			continue
		}
		if key == All {
			for _, name := range BuiltinNames() {
				if !seen[name] {
					seen[name] = true
					out = append(out, Builtin[name])
				}
			}
			seen[All] = true
			continue
		}
		seen[key] = true
		s, ok := Builtin[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownSource, n, strings.Join(BuiltinNames(), ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

// Custom builds a source for a user-supplied URL. The host doubles as the
// source name for allow-list checks.
func Custom(rawURL, format string) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Source{}, fmt.Errorf("invalid URL: %s", rawURL)
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatCSV && format != FormatJSON {
		return Source{}, fmt.Errorf("unsupported data format %q (want csv or json)", format)
	}
	return Source{Name: u.Hostname(), URL: rawURL, Format: format}, nil
}
