package util

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	AESKeySize = 32
	AESIVSize  = aes.BlockSize
)

// EncryptAESStream encrypts plainText with AES-256 in CTR mode under the
// given IV. The output has the same length as the input and carries no
// authentication tag; integrity is the caller's concern.
func EncryptAESStream(plainText, rawKey, iv []byte) ([]byte, error) {
	stream, err := newAESStream(rawKey, iv)
	if err != nil {
		return nil, err
	}
	cipherText := make([]byte, len(plainText))
	stream.XORKeyStream(cipherText, plainText)
	return cipherText, nil
}

// DecryptAESStream reverses EncryptAESStream. A wrong key is not detected
// here; it yields garbage of the same length.
func DecryptAESStream(cipherText, rawKey, iv []byte) ([]byte, error) {
	stream, err := newAESStream(rawKey, iv)
	if err != nil {
		return nil, err
	}
	plainText := make([]byte, len(cipherText))
	stream.XORKeyStream(plainText, cipherText)
	return plainText, nil
}

func newAESStream(rawKey, iv []byte) (cipher.Stream, error) {
	if len(rawKey) != AESKeySize {
		return nil, fmt.Errorf("invalid AES key size: got %d, want %d", len(rawKey), AESKeySize)
	}
	if len(iv) != AESIVSize {
		return nil, fmt.Errorf("invalid AES IV size: got %d, want %d", len(iv), AESIVSize)
	}

	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewCTR(block, iv), nil
}

func NewAESIV() ([]byte, error) {
	iv, err := RandomBytes(AESIVSize)
	if err != nil {
		return nil, fmt.Errorf("generating AES IV: %w", err)
	}
	return iv, nil
}
