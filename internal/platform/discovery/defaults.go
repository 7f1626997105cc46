// Package discovery centralizes internal service-discovery conventions.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceAPI is the REST API service identity.
	ServiceAPI = "api"
	// ServiceWeb is the server-rendered frontend identity.
	ServiceWeb = "web"
)

var httpPorts = map[string]int{
	ServiceAPI: 8080,
	ServiceWeb: 3000,
}

// DefaultHTTPAddr returns the canonical in-network HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	port, ok := httpPorts[strings.TrimSpace(service)]
	if !ok || port <= 0 {
		return ""
	}
	return strings.TrimSpace(service) + ":" + strconv.Itoa(port)
}

// DefaultListenAddr returns the listen address for a service's HTTP port.
func DefaultListenAddr(service string) string {
	port, ok := httpPorts[strings.TrimSpace(service)]
	if !ok || port <= 0 {
		return ""
	}
	return ":" + strconv.Itoa(port)
}

// OrDefaultHTTPBaseURL returns value when set, otherwise http://<service-host:port>.
func OrDefaultHTTPBaseURL(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return strings.TrimRight(value, "/")
	}
	addr := DefaultHTTPAddr(service)
	if addr == "" {
		return ""
	}
	return "http://" + addr
}
