package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// HTTPClient returns the client for all remote calls. With a trust store
// configured, only its CAs are trusted.
func (c Config) HTTPClient() (*http.Client, error) {
	if c.TrustStore == "" {
		return &http.Client{}, nil
	}

	pem, err := os.ReadFile(c.TrustStore)
	if err != nil {
		return nil, fmt.Errorf("read trust store: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("trust store contains no PEM certificates")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	return &http.Client{Transport: transport}, nil
}
