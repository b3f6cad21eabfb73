package morph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhitespaceMorphs(t *testing.T) {
	assert.Equal(t, []string{"그는", "매우", "빨리", "달렸다"}, Whitespace{}.Morphs("그는 매우  빨리 달렸다"))
	assert.Empty(t, Whitespace{}.Morphs("   "))
}

func TestJapaneseRunPattern(t *testing.T) {
	pattern := JapaneseRunPattern()
	assert.Equal(t, []string{"ソニー"}, pattern.FindAllString("소니(ソニー)는 일본 기업이다.", -1))
	assert.Equal(t, []string{"東京"}, pattern.FindAllString("수도는 東京 입니다", -1))
	assert.Nil(t, pattern.FindAllString("한국어만 있는 문장", -1))
}
