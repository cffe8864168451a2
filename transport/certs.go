package transport

import (
	"crypto/tls"
	"embed"
	"fmt"
)

//go:embed assets/dev-cert.pem assets/dev-key.pem
var certFS embed.FS

// LoadEmbeddedCert loads the pinned development certificate compiled into
// the binary. Operators who need a different identity replace these two
// files and rebuild; there is no runtime cert-loading path.
func LoadEmbeddedCert() (tls.Certificate, error) {
	certPEM, err := certFS.ReadFile("assets/dev-cert.pem")
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("transport: read embedded cert: %w", err)
	}
	keyPEM, err := certFS.ReadFile("assets/dev-key.pem")
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("transport: read embedded key: %w", err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("transport: parse embedded keypair: %w", err)
	}
	return cert, nil
}
