package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Signer 为 /pair 下发的对决票据签名，并在提交投票时校验。
type Signer struct {
	secretKey []byte
}

// TicketPayload 是被签名的数据，前端需在提交投票时原样带回。
type TicketPayload struct {
	PairKey string `json:"k"`
	LeftID  string `json:"l"`
	RightID string `json:"r"`
}

// NewSigner 使用给定密钥创建签名器；密钥为空时生成一个32字节的随机密钥。
func NewSigner(secret string) (*Signer, error) {
	if secret != "" {
		return &Signer{secretKey: []byte(secret)}, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("无法生成安全的密钥: %w", err)
	}
	return &Signer{secretKey: key}, nil
}

// Sign 生成payload的HMAC-SHA256签名，返回Base64编码字符串。
func (s *Signer) Sign(payload TicketPayload) (string, error) {
	mac, err := s.mac(payload)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(mac), nil
}

// Verify 校验payload与签名是否匹配。
func (s *Signer) Verify(payload TicketPayload, signatureB64 string) bool {
	expected, err := s.mac(payload)
	if err != nil {
		return false
	}
	actual, err := base64.RawURLEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}
	// 时间恒定的比较，防止时序攻击
	return hmac.Equal(expected, actual)
}

func (s *Signer) mac(payload TicketPayload) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New("无法序列化票据payload")
	}
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write(payloadBytes)
	return mac.Sum(nil), nil
}
