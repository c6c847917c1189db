// Package parser extracts named numeric measurements from raw device lines
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// labeled format: "temp:25.5,humidity=60"
	labeledRegExp = regexp.MustCompile(`(\w+)\s*[:=]\s*([-+]?[0-9]*\.?[0-9]+)`)
	// positional format: "10,20,30" or "10 20 30"
	fieldSplitRegExp = regexp.MustCompile(`[,;\s\t]+`)
	numberRegExp     = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)
)

// Batch is the ordered set of measurements parsed from a single line.
// Names keep first-appearance order, a later duplicate overwrites the
// value but not the position
type Batch struct {
	names  []string
	values map[string]float64
}

// Len returns the number of measurements in the batch
func (b Batch) Len() int {
	return len(b.names)
}

// Names returns the measurement names in first-appearance order
func (b Batch) Names() []string {
	names := make([]string, len(b.names))
	copy(names, b.names)
	return names
}

// Get returns the value bound to the given measurement name
func (b Batch) Get(name string) (float64, bool) {
	v, ok := b.values[name]
	return v, ok
}

// String implements the fmt.Stringer interface. Used in debug logs
func (b Batch) String() string {
	var sb strings.Builder
	for i, name := range b.names {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprintf("%s=%v", name, b.values[name]))
	}
	return sb.String()
}

// set binds a value to a name, keeping the original position on overwrite
func (b *Batch) set(name string, value float64) {
	if b.values == nil {
		b.values = make(map[string]float64)
	}
	if _, ok := b.values[name]; !ok {
		b.names = append(b.names, name)
	}
	b.values[name] = value
}

// ParseLine parses a single device line into a Batch. The labeled format
// takes priority: if the line contains one or more "name:value" or
// "name=value" pairs, only those pairs are extracted. Otherwise the line is
// split into fields on commas, semicolons or whitespace and the first numeric
// substring of field i is bound to the synthetic name CH<i> (1-indexed, fields
// without a number keep their index but contribute nothing). Unconvertible
// tokens are dropped silently. ParseLine never fails: worst case it returns
// an empty Batch
func ParseLine(line string) Batch {
	var batch Batch
	line = strings.TrimSpace(line)
	if line == "" {
		return batch
	}
	labeled := labeledRegExp.FindAllStringSubmatch(line, -1)
	if len(labeled) > 0 {
		for _, match := range labeled {
			value, err := strconv.ParseFloat(match[2], 64)
			if err != nil {
				continue
			}
			batch.set(match[1], value)
		}
		return batch
	}
	fields := fieldSplitRegExp.Split(line, -1)
	for i, field := range fields {
		numStr := numberRegExp.FindString(field)
		if numStr == "" {
			continue
		}
		value, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			continue
		}
		batch.set(fmt.Sprintf("CH%v", i+1), value)
	}
	return batch
}
