package certs

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	m := NewManager("FedBridge SP")

	kp, err := m.Generate()
	require.NoError(t, err)
	require.NotNil(t, kp)

	certBlock, _ := pem.Decode([]byte(kp.PublicKey))
	require.NotNil(t, certBlock)
	assert.Equal(t, "CERTIFICATE", certBlock.Type)

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "FedBridge SP", cert.Subject.CommonName)
	assert.True(t, cert.NotAfter.After(time.Now().Add(9*365*24*time.Hour)))

	keyBlock, _ := pem.Decode([]byte(kp.PrivateKey))
	require.NotNil(t, keyBlock)
	assert.Equal(t, "PRIVATE KEY", keyBlock.Type)

	_, err = x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	assert.NoError(t, err)
}

func TestGenerateUniquePairs(t *testing.T) {
	m := NewManager("FedBridge SP")

	a, err := m.Generate()
	require.NoError(t, err)
	b, err := m.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.PublicKey, b.PublicKey)
	assert.NotEqual(t, a.PrivateKey, b.PrivateKey)
}

func TestKeyStore(t *testing.T) {
	m := NewManager("FedBridge SP")

	kp, err := m.Generate()
	require.NoError(t, err)

	ks, err := kp.KeyStore()
	require.NoError(t, err)

	key, cert, err := ks.GetKeyPair()
	require.NoError(t, err)
	assert.NotNil(t, key)
	assert.NotEmpty(t, cert)
}

func TestKeyStoreBadPEM(t *testing.T) {
	kp := &KeyPair{PublicKey: "junk", PrivateKey: "junk"}
	_, err := kp.KeyStore()
	assert.Error(t, err)
}
