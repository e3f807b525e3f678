package customHttpClient

import (
	"net/http"

	"github.com/akolanti/OfflineRAG/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// GetPooledClient returns a client sharing one keep-alive transport. The
// local model server sits on loopback and every query hits it, so connection
// reuse matters more here than anywhere else.
func GetPooledClient() *http.Client {
	return &http.Client{Transport: customTransport}
}
