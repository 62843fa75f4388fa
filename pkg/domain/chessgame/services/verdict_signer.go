package chessgame_services

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// VerdictSigner produces the ECDSA signatures spec §4.C asks for: a
// secp256k1 signature, wrapped in the Ethereum personal-message
// envelope, over a packed-encoded payload the escrow contract recovers
// on-chain. Grounded on the "\x19Ethereum Signed Message:\n32" +
// crypto.Sign idiom found throughout the go-ethereum-derivative repos in
// the pack (e.g. ethereum-go-ethereum's
// XDCxlending/lendingstate/lendingitem_test.go).
type VerdictSigner struct {
	key             *ecdsa.PrivateKey
	signerAddress   common.Address
	chainID         int64
	contractAddress common.Address
}

func NewVerdictSigner(privateKeyHex string, chainID int64, contractAddress string) (*VerdictSigner, error) {
	key, err := crypto.HexToECDSA(trim0x(privateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid verdict signer private key: %w", err)
	}

	return &VerdictSigner{
		key:             key,
		signerAddress:   crypto.PubkeyToAddress(key.PublicKey),
		chainID:         chainID,
		contractAddress: common.HexToAddress(contractAddress),
	}, nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func (s *VerdictSigner) Address() common.Address {
	return s.signerAddress
}

// packedPayload builds keccak256(abi.encodePacked(prefix, gameId,
// claimant, chainId, contract)) — spec §4.C/§6's exact packed-encoding
// convention: big-endian, no padding separators between dynamic parts.
func (s *VerdictSigner) packedPayload(prefix string, gameID int64, claimant common.Address) []byte {
	buf := make([]byte, 0, len(prefix)+32+20+32+20)
	buf = append(buf, []byte(prefix)...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(gameID).Bytes(), 32)...)
	buf = append(buf, claimant.Bytes()...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(s.chainID).Bytes(), 32)...)
	buf = append(buf, s.contractAddress.Bytes()...)

	return crypto.Keccak256(buf)
}

// signEnvelope wraps payloadHash in the personal-message envelope and
// signs it with the coordinator's key (spec: "the signing key is held
// by the coordinator process; never leaves memory").
func (s *VerdictSigner) signEnvelope(payloadHash []byte) (string, error) {
	envelope := crypto.Keccak256(
		[]byte("\x19Ethereum Signed Message:\n32"),
		payloadHash,
	)

	sig, err := crypto.Sign(envelope, s.key)
	if err != nil {
		return "", fmt.Errorf("sign verdict: %w", err)
	}

	// Ethereum's recovery-id convention expects v in {27, 28}, not {0, 1}.
	sig[64] += 27

	return "0x" + common.Bytes2Hex(sig), nil
}

// SignWin produces the single GAME_WIN signature for the winner's
// address (spec §4.C).
func (s *VerdictSigner) SignWin(gameID int64, winner common.Address) (string, error) {
	hash := s.packedPayload("GAME_WIN", gameID, winner)
	return s.signEnvelope(hash)
}

// SignDraw produces one GAME_DRAW signature for the given claimant;
// callers call this once per player, since each claimant's address is
// embedded separately (spec §4.C).
func (s *VerdictSigner) SignDraw(gameID int64, claimant common.Address) (string, error) {
	hash := s.packedPayload("GAME_DRAW", gameID, claimant)
	return s.signEnvelope(hash)
}
