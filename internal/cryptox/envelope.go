// Package cryptox implements the at-rest envelope used for every stored
// file: a random nonce prefix followed by a sequence of AES-256-GCM sealed
// chunks.
//
// Layout:
//
//	| prefix (12 bytes) | chunk 0 | chunk 1 | ... | final chunk |
//
// Each chunk carries up to ChunkSize bytes of plaintext plus the GCM tag.
// The nonce of chunk i is the prefix with the big-endian counter i XORed into
// its last 8 bytes. The additional data is a single byte set to 1 for the
// final chunk, so dropping trailing chunks breaks authentication.
package cryptox

import (
	"bufio"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/SakshiM22/secure-vault/internal/common"
)

const (
	NonceSize = 12
	KeySize   = 32
	ChunkSize = 64 * 1024
	tagSize   = 16
)

// DeriveKey turns the operator secret into a 256-bit AES key.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: file encryption secret is empty", common.ErrConfiguration)
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", common.ErrConfiguration, KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func chunkNonce(prefix []byte, counter uint64, out []byte) {
	copy(out, prefix)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], counter)
	for i := 0; i < 8; i++ {
		out[NonceSize-8+i] ^= ctr[i]
	}
}

func additionalData(final bool) []byte {
	if final {
		return []byte{1}
	}
	return []byte{0}
}

func ctxErr(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}
	return err
}

// readChunk fills buf from r and reports whether this is the last chunk of
// the stream. A short read ends the stream; a full read is final only when
// nothing follows it.
func readChunk(r *bufio.Reader, buf []byte) (int, bool, error) {
	n, err := io.ReadFull(r, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, true, nil
	case err != nil:
		return n, false, err
	}
	if _, err := r.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return n, true, nil
		}
		return n, false, err
	}
	return n, false, nil
}

// Seal encrypts src into dst. A fresh nonce prefix is generated per call.
func Seal(ctx context.Context, dst io.Writer, src io.Reader, key []byte) error {
	aead, err := newAEAD(key)
	if err != nil {
		return err
	}

	prefix := common.GenerateRandByteArray(NonceSize)
	if _, err := dst.Write(prefix); err != nil {
		return fmt.Errorf("write prefix: %w", err)
	}

	br := bufio.NewReaderSize(src, ChunkSize)
	plain := make([]byte, ChunkSize)
	sealed := make([]byte, 0, ChunkSize+tagSize)
	nonce := make([]byte, NonceSize)
	defer common.WipeByteArray(plain)

	for counter := uint64(0); ; counter++ {
		if err := ctxErr(ctx); err != nil {
			return err
		}

		n, final, err := readChunk(br, plain)
		if err != nil {
			return fmt.Errorf("read plaintext: %w", err)
		}

		chunkNonce(prefix, counter, nonce)
		sealed = aead.Seal(sealed[:0], nonce, plain[:n], additionalData(final))
		if _, err := dst.Write(sealed); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}

		if final {
			return nil
		}
	}
}

// Open decrypts an envelope produced by Seal. Plaintext is written chunk by
// chunk as each chunk authenticates, so on error dst may hold a prefix of the
// plaintext; OpenFile discards it.
func Open(ctx context.Context, dst io.Writer, src io.Reader, key []byte) error {
	aead, err := newAEAD(key)
	if err != nil {
		return err
	}

	br := bufio.NewReaderSize(src, ChunkSize+tagSize)

	prefix := make([]byte, NonceSize)
	if _, err := io.ReadFull(br, prefix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: envelope too short", common.ErrDecryptionFailed)
		}
		return fmt.Errorf("read prefix: %w", err)
	}

	sealed := make([]byte, ChunkSize+tagSize)
	plain := make([]byte, 0, ChunkSize)
	nonce := make([]byte, NonceSize)
	defer common.WipeByteArray(plain[:cap(plain)])

	for counter := uint64(0); ; counter++ {
		if err := ctxErr(ctx); err != nil {
			return err
		}

		n, final, err := readChunk(br, sealed)
		if err != nil {
			return fmt.Errorf("read ciphertext: %w", err)
		}

		chunkNonce(prefix, counter, nonce)
		plain, err = aead.Open(plain[:0], nonce, sealed[:n], additionalData(final))
		if err != nil {
			return fmt.Errorf("%w: chunk %d", common.ErrDecryptionFailed, counter)
		}

		if _, err := dst.Write(plain); err != nil {
			return fmt.Errorf("write plaintext: %w", err)
		}

		if final {
			return nil
		}
	}
}
