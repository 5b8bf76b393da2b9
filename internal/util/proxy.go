package util

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if matchesNoProxy(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// NewHTTPClient builds the outbound client shared by the API and source clients
func NewHTTPClient(cfg model.HTTPConfig, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func splitNoProxy(noProxy string) []string {
	var out []string
	for _, part := range strings.Split(noProxy, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, strings.TrimPrefix(part, "."))
		}
	}
	return out
}

func matchesNoProxy(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if b == "*" || host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
