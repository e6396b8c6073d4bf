package httpclient

import (
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// proxyEnvVars is the order of preference for proxy configuration,
// following the conventions curl and wget use.
var proxyEnvVars = []string{
	"HTTPS_PROXY",
	"https_proxy",
	"HTTP_PROXY",
	"http_proxy",
}

// New creates an HTTP client that honours the standard proxy environment
// variables when they are set.
func New(timeout time.Duration) *http.Client {
	return NewWithLogger(timeout, nil)
}

// NewWithLogger is New with debug logging of the proxy decision.
func NewWithLogger(timeout time.Duration, logger *logrus.Logger) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL := getProxyURL(); proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
			if logger != nil {
				logger.WithField("proxy_url", redactCredentials(proxyURL)).Debug("HTTP client configured with proxy")
			}
		} else if logger != nil {
			logger.WithError(err).WithField("proxy_url", redactCredentials(proxyURL)).Warn("Failed to parse proxy URL, using direct connection")
		}
	}
	client.Transport = transport

	return client
}

// getProxyURL returns the first configured proxy URL, skipping the
// placeholder values some tools leave behind.
func getProxyURL() string {
	for _, envVar := range proxyEnvVars {
		if proxyURL := os.Getenv(envVar); proxyURL != "" {
			if proxyURL != "$HTTPS_PROXY" && proxyURL != "$HTTP_PROXY" {
				return proxyURL
			}
		}
	}
	return ""
}

// redactCredentials strips userinfo from a proxy URL for safe logging.
func redactCredentials(proxyURL string) string {
	if parsed, err := url.Parse(proxyURL); err == nil {
		if parsed.User != nil {
			parsed.User = url.UserPassword("***", "***")
		}
		return parsed.String()
	}
	return "[invalid-url]"
}
