package shortcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_DefaultLength(t *testing.T) {
	g := NewGenerator(0)

	code, err := g.Generate()
	assert.NoError(t, err, "生成短码不应出错")
	assert.Len(t, code, DefaultLength, "默认短码长度应为 8")
}

func TestGenerate_AlphabetOnly(t *testing.T) {
	g := NewGenerator(8)

	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		assert.NoError(t, err)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(Alphabet, ch),
				"短码字符 %q 必须来自字符集", ch)
		}
	}
}

func TestGenerate_CustomLength(t *testing.T) {
	g := NewGenerator(12)

	code, err := g.Generate()
	assert.NoError(t, err)
	assert.Len(t, code, 12)
}

func TestGenerate_CustomAlphabet(t *testing.T) {
	// 单字符字符集只能产出唯一一个候选，用于模拟码空间耗尽
	g := NewGeneratorWithAlphabet("a", 1)

	code, err := g.Generate()
	assert.NoError(t, err)
	assert.Equal(t, "a", code)
}

func TestGenerate_NoObviousRepeats(t *testing.T) {
	g := NewGenerator(8)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code, err := g.Generate()
		assert.NoError(t, err)
		_, dup := seen[code]
		assert.False(t, dup, "1000 个 8 位短码内不应出现重复: %s", code)
		seen[code] = struct{}{}
	}
}
