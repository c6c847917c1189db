// Package ports lists the serial devices available on this machine
package ports

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Details describes one enumerated serial device
type Details struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Product string
}

// List returns the serial devices currently present, in enumeration order
func List() ([]Details, error) {
	detailed, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]Details, 0, len(detailed))
	for _, p := range detailed {
		ports = append(ports, Details{
			Name:    p.Name,
			IsUSB:   p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Product: p.Product,
		})
	}
	return ports, nil
}

// Format renders one device as a human readable line for the CLI
func (d Details) Format() string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	if d.Product != "" {
		sb.WriteString(fmt.Sprintf("\t%s", d.Product))
	}
	if d.IsUSB {
		sb.WriteString(fmt.Sprintf("\t[USB %s:%s]", d.VID, d.PID))
	}
	return sb.String()
}
