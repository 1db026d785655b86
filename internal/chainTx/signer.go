package chainTx

import (
	"bytes"
	"crypto/ed25519"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Signer 只在组装的最后阶段使用，其余环节只需要公钥
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
}

// KeypairSigner 使用本地私钥签名
type KeypairSigner struct {
	key solana.PrivateKey
}

func NewKeypairSigner(key solana.PrivateKey) (*KeypairSigner, error) {
	if err := CheckKeypair(key); err != nil {
		return nil, err
	}
	return &KeypairSigner{key: key}, nil
}

// CheckKeypair 私钥为 64 字节 (种子 + 公钥)，后 32 字节必须是种子推导出的公钥
func CheckKeypair(key solana.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return errors.Errorf("私钥长度应为 %d 字节，实际为 %d", ed25519.PrivateKeySize, len(key))
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return errors.New("私钥中的公钥与种子不匹配")
	}
	return nil
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *KeypairSigner) Sign(message []byte) (solana.Signature, error) {
	if len(s.key) != 64 {
		return solana.Signature{}, errors.New("私钥不可用")
	}
	return s.key.Sign(message)
}
