// Package crypto implements the envelope scheme protecting a vault.
//
// A key-encryption key (KEK) is derived from the master password and the
// vault salt with PBKDF2-HMAC-SHA256. The KEK wraps a random data-encryption
// key (DEK) with AES-256-GCM, and the DEK seals individual record fields with
// XChaCha20-Poly1305. Every sealing call draws a fresh nonce from crypto/rand;
// no function accepts a nonce from its caller.
package crypto
