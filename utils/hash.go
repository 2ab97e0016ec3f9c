package utils

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// BytesMD5 计算字节数组MD5
func BytesMD5(data []byte) string {
	hash := md5.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}

// CompositeKey 由两张图片的内容和参数计算缓存键
func CompositeKey(background, overlay []byte, options any) (string, error) {
	opts, err := json.Marshal(options)
	if err != nil {
		return "", err
	}

	hash := md5.New()
	hash.Write([]byte(BytesMD5(background)))
	hash.Write([]byte{0})
	hash.Write([]byte(BytesMD5(overlay)))
	hash.Write([]byte{0})
	hash.Write(opts)
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// NewRequestID 生成请求ID
func NewRequestID() string {
	return uuid.NewString()
}
