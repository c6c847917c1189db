// Package daq holds the interfaces shared by the splotd services
package daq

// Service is the interface implemented by every long-running splotd service
type Service interface {
	Start() error
	Stop() error
	Name() string
}
