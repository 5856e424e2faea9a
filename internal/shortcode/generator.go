package shortcode

import (
	"crypto/rand"
	"math/big"
)

const (
	// Alphabet 包含用于生成短码的所有字符
	// 去掉了易混淆的 0、O、1、l、I，避免用户手抄短码时出错
	Alphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	// DefaultLength 是生成短码的默认长度
	DefaultLength = 8
)

// Generator 负责生成短码候选
// 它只产出随机候选，不做任何存储交互；
// 唯一性由存储层的唯一索引保证，冲突时由调用方换一个候选重试
type Generator struct {
	alphabet string
	length   int
}

// NewGenerator 创建一个使用默认字符集的短码生成器
// length 小于等于 0 时使用 DefaultLength
func NewGenerator(length int) *Generator {
	return NewGeneratorWithAlphabet(Alphabet, length)
}

// NewGeneratorWithAlphabet 创建一个使用自定义字符集的短码生成器
// 主要用于测试（例如用单字符字符集模拟码空间耗尽）
func NewGeneratorWithAlphabet(alphabet string, length int) *Generator {
	if alphabet == "" {
		alphabet = Alphabet
	}
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{alphabet: alphabet, length: length}
}

// Length 返回生成短码的长度
func (g *Generator) Length() int {
	return g.length
}

// Generate 使用加密安全的随机数生成器产出一个短码候选
// 短码不可被枚举或预测，因此不使用 math/rand
func (g *Generator) Generate() (string, error) {
	b := make([]byte, g.length)
	max := big.NewInt(int64(len(g.alphabet)))
	for i := range b {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = g.alphabet[num.Int64()]
	}
	return string(b), nil
}
