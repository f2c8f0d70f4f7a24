package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// systemProgramID is the native system program (base58 "11111111111111111111111111111111").
var systemProgramID = make([]byte, 32)

// systemTransferIndex is the system program instruction index for Transfer.
const systemTransferIndex uint32 = 2

// BuildTransfer assembles and signs a legacy transaction carrying a single
// system-program transfer, returning it base64 encoded for sendTransaction.
func BuildTransfer(from *Keypair, to string, lamports uint64, recentBlockhash string) (string, error) {
	if from == nil {
		return "", fmt.Errorf("nil keypair")
	}
	if lamports == 0 {
		return "", fmt.Errorf("zero lamport transfer")
	}

	toKey, err := DecodePublicKey(to)
	if err != nil {
		return "", fmt.Errorf("destination: %w", err)
	}

	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil {
		return "", fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhash) != 32 {
		return "", fmt.Errorf("blockhash must be 32 bytes, got %d", len(blockhash))
	}

	message := serializeTransferMessage(from.publicKeyBytes(), toKey, blockhash, lamports)
	signature := from.Sign(message)

	// Wire format: compact array of signatures, then the signed message.
	tx := make([]byte, 0, 1+len(signature)+len(message))
	tx = appendCompactU16(tx, 1)
	tx = append(tx, signature...)
	tx = append(tx, message...)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// serializeTransferMessage builds the legacy message for a single transfer.
//
// Header: 1 required signature, 0 readonly signed, 1 readonly unsigned
// (the system program). Account order: payer, destination, program.
func serializeTransferMessage(from, to, blockhash []byte, lamports uint64) []byte {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	msg := make([]byte, 0, 3+1+3*32+32+1+1+1+2+1+len(data))
	msg = append(msg, 1, 0, 1)

	msg = appendCompactU16(msg, 3)
	msg = append(msg, from...)
	msg = append(msg, to...)
	msg = append(msg, systemProgramID...)

	msg = append(msg, blockhash...)

	msg = appendCompactU16(msg, 1)
	msg = append(msg, 2) // program ID index
	msg = appendCompactU16(msg, 2)
	msg = append(msg, 0, 1) // payer, destination
	msg = appendCompactU16(msg, len(data))
	msg = append(msg, data...)

	return msg
}

// appendCompactU16 appends n in the compact-u16 encoding used by Solana's
// legacy transaction format.
func appendCompactU16(b []byte, n int) []byte {
	v := uint16(n)
	for {
		if v < 0x80 {
			return append(b, byte(v))
		}
		b = append(b, byte(v&0x7f)|0x80)
		v >>= 7
	}
}
