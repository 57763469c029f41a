package crypt

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/scrypt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	chachaBlockSize = 64
)

// ChaCha20 XORs payloads with a ChaCha20 keystream. The nonce is derived from
// the drive, the file uid and the sector, so rewriting the same bytes of a
// file reuses keystream; it hides contents at rest and does not authenticate
// them.
type ChaCha20 struct {
	key [chacha20.KeySize]byte
}

// NewChaCha20 derives the key from the passphrase with scrypt. The salt is
// normally the volume id.
func NewChaCha20(passphrase string, salt []byte) (*ChaCha20, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, chacha20.KeySize)
	if err != nil {
		return nil, fmt.Errorf("deriving chacha20 key: %w", err)
	}
	var c ChaCha20
	copy(c.key[:], key)
	return &c, nil
}

func (c *ChaCha20) Encrypt(drive DriveID, uid UID, sector Sector, offset Byte, p []byte) {
	c.xor(drive, uid, sector, offset, p)
}

func (c *ChaCha20) Decrypt(drive DriveID, uid UID, sector Sector, offset Byte, p []byte) {
	c.xor(drive, uid, sector, offset, p)
}

func (c *ChaCha20) xor(drive DriveID, uid UID, sector Sector, offset Byte, p []byte) {
	var nonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint32(nonce[0:], uint32(uid))
	binary.LittleEndian.PutUint16(nonce[4:], uint16(sector))
	nonce[6] = byte(drive)

	stream, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce[:])
	if err != nil {
		// key and nonce sizes are fixed above
		panic(fmt.Sprintf("creating chacha20 stream: %v", err))
	}
	stream.SetCounter(uint32(offset / chachaBlockSize))
	if skip := offset % chachaBlockSize; skip > 0 {
		var discard [chachaBlockSize]byte
		stream.XORKeyStream(discard[:skip], discard[:skip])
	}
	stream.XORKeyStream(p, p)
}
