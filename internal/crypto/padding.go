package crypto

import (
	"crypto/subtle"
	"errors"
)

var errBadPadding = errors.New("invalid padding")

// pkcs7Pad always appends between 1 and blockSize bytes, so an aligned
// input gains a full block of padding.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// pkcs7Unpad returns data without its padding. The pad bytes are checked in
// constant time over the final block.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errBadPadding
	}

	n := int(data[len(data)-1])
	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, blockSize)
	for i := 0; i < blockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i+1, n)
		match := subtle.ConstantTimeByteEq(data[len(data)-1-i], byte(n))
		// Bytes outside the pad are ignored; bytes inside must equal n.
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}
	if good != 1 {
		return nil, errBadPadding
	}

	return data[:len(data)-n], nil
}
