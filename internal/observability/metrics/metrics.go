// Package metrics exposes Prometheus instruments for the HTTP surface
// and the sweep worker.
package metrics

import "strings"

// Config names the metric namespace.
type Config struct {
	ServiceName string
}

func (c Config) namespace() string {
	name := strings.TrimSpace(c.ServiceName)
	if name == "" {
		name = "recaudo"
	}
	return strings.ReplaceAll(name, "-", "_")
}
