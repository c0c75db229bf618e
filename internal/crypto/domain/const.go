package domain

// Algorithm represents the AEAD algorithm used for encryption.
//
// Both supported algorithms provide authenticated encryption with 256-bit
// keys, 12-byte nonces, and 16-byte authentication tags. AESGCM is preferred
// on CPUs with AES-NI; ChaCha20 performs better on devices without it.
type Algorithm string

const (
	// AESGCM is AES-256 in Galois/Counter Mode.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305.
	ChaCha20 Algorithm = "chacha20-poly1305"
)
