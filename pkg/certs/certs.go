package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	dsig "github.com/russellhaering/goxmldsig"
)

// KeyPair holds a PEM-encoded self-signed certificate and its private key.
// PublicKey carries the certificate; PrivateKey is never exposed in JSON
// responses by the API layer.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// Manager generates signing keypairs for connections.
type Manager struct {
	commonName string
	validity   time.Duration
	keySize    int
}

// NewManager creates a certificate manager issuing certificates with the
// given common name.
func NewManager(commonName string) *Manager {
	return &Manager{
		commonName: commonName,
		validity:   10 * 365 * 24 * time.Hour,
		keySize:    2048,
	}
}

// Generate produces a fresh RSA keypair and self-signed certificate suitable
// for SP-side request signing.
func (m *Manager) Generate() (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, m.keySize)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: m.commonName,
		},
		NotBefore:             now,
		NotAfter:              now.Add(m.validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}

	return &KeyPair{
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})),
	}, nil
}

// KeyStore parses the pair back into an xmldsig key store for the login
// layer to sign AuthnRequests with.
func (kp *KeyPair) KeyStore() (dsig.X509KeyStore, error) {
	certBlock, _ := pem.Decode([]byte(kp.PublicKey))
	if certBlock == nil {
		return nil, fmt.Errorf("failed to decode certificate PEM")
	}

	keyBlock, _ := pem.Decode([]byte(kp.PrivateKey))
	if keyBlock == nil {
		return nil, fmt.Errorf("failed to decode private key PEM")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	return &dsig.TLSCertKeyStore{
		PrivateKey:  key,
		Certificate: [][]byte{certBlock.Bytes},
	}, nil
}
