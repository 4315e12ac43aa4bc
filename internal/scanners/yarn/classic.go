package yarn

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"wormsign/internal/lockfile"
)

type classicState int

const (
	seekingPackagesBlock classicState = iota
	readingEntryHeader
	readingEntryFields
)

// classicEntry accumulates one v1 entry until it is flushed.
type classicEntry struct {
	descriptors []string
	version     string
	integrity   string
	resolved    string
	fieldIndent int
}

// classicParser is the line-oriented state machine for yarn v1 files.
// Header lines start in column 0 and end with ':'. Field lines are
// indented; a line indented deeper than the entry's first field belongs
// to a nested block (dependencies, optionalDependencies) and is ignored.
type classicParser struct {
	state    classicState
	current  *classicEntry
	ix       *lockfile.Index
	warnings []string
}

func parseClassic(content []byte) (*lockfile.Index, []string, error) {
	p := &classicParser{state: seekingPackagesBlock, ix: lockfile.NewIndex()}

	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := p.line(sc.Text(), lineNo); err != nil {
			return nil, nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: reading yarn.lock: %v", lockfile.ErrParse, err)
	}
	p.flush()
	return p.ix, p.warnings, nil
}

func (p *classicParser) line(raw string, lineNo int) error {
	line := strings.TrimRight(raw, " \t\r")
	trimmed := strings.TrimSpace(line)

	if trimmed == "" {
		if p.state == readingEntryFields {
			p.flush()
		}
		return nil
	}
	if strings.HasPrefix(trimmed, "#") {
		return nil
	}

	indent := len(line) - len(strings.TrimLeft(line, " \t"))

	if indent == 0 {
		if !strings.HasSuffix(trimmed, ":") {
			return fmt.Errorf("%w: yarn.lock line %d: expected entry header, got %q", lockfile.ErrParse, lineNo, trimmed)
		}
		p.flush()
		p.current = &classicEntry{descriptors: splitDescriptors(strings.TrimSuffix(trimmed, ":"))}
		p.state = readingEntryFields
		return nil
	}

	switch p.state {
	case seekingPackagesBlock, readingEntryHeader:
		return fmt.Errorf("%w: yarn.lock line %d: field outside of an entry", lockfile.ErrParse, lineNo)
	}

	e := p.current
	if e.fieldIndent == 0 {
		e.fieldIndent = indent
	}
	if indent > e.fieldIndent {
		return nil
	}

	key, value := splitField(trimmed)
	switch key {
	case "version":
		e.version = value
	case "integrity":
		e.integrity = value
	case "resolved":
		e.resolved = value
	}
	return nil
}

// flush is the single transition that commits the current entry.
func (p *classicParser) flush() {
	if p.current != nil {
		e := p.current
		hash := e.integrity
		if hash == "" {
			hash = hashFromResolved(e.resolved)
		}
		p.warnings = append(p.warnings, addEntry(p.ix, e.descriptors, e.version, hash)...)
	}
	p.current = nil
	p.state = readingEntryHeader
}

// splitField splits `version "1.0.0"` or `integrity sha512-...` into key
// and unquoted value. Keys ending in ':' open nested blocks and have no
// value.
func splitField(trimmed string) (string, string) {
	key, value, found := strings.Cut(trimmed, " ")
	key = strings.Trim(key, `"`)
	if !found {
		return strings.TrimSuffix(key, ":"), ""
	}
	key = strings.TrimSuffix(key, ":")
	return key, strings.Trim(strings.TrimSpace(value), `"`)
}
