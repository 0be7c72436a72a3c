package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// 令牌只存哈希，明文只出现在发给联系人的链接里

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

// GenerateTokenSecret 生成 URL 安全的随机令牌明文
func GenerateTokenSecret(numBytes int) (string, error) {
	if numBytes <= 0 {
		numBytes = 32
	}

	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
