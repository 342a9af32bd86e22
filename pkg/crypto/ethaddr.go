package crypto

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ChecksumAddress renders addr with EIP-55 mixed-case hex, so addresses
// copy-pasted out of API responses survive wallet checksum validation.
func ChecksumAddress(addr common.Address) string {
	lower := hex.EncodeToString(addr.Bytes())

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := h.Sum(nil)

	buf := []byte(lower)
	for i, c := range buf {
		if c < 'a' {
			continue
		}
		// The i-th hex character is uppercased when the i-th nibble of
		// keccak256(lowercase address) is 8 or above.
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			buf[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(buf)
}
