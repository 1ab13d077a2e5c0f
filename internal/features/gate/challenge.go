package gate

import (
	"math/rand/v2"
	"strings"
)

// Glyph — один символ кода с визуальными искажениями.
type Glyph struct {
	Char     string
	Rotation float64 // градусы, [-10, 10)
	Scale    float64 // [0.9, 1.1)
	Shade    int     // компонента серого цвета, [40, 80)
}

// GenerateChallenge собирает строку длины length из символов алфавита
// (равномерно, с повторениями).
func GenerateChallenge(rnd *rand.Rand, characters string, length int) string {
	chars := []rune(characters)
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteRune(chars[rnd.IntN(len(chars))])
	}
	return b.String()
}

// Jitter раскладывает код на символы со случайным поворотом, масштабом и оттенком.
func Jitter(rnd *rand.Rand, challenge string) []Glyph {
	runes := []rune(challenge)
	out := make([]Glyph, 0, len(runes))
	for _, r := range runes {
		out = append(out, Glyph{
			Char:     string(r),
			Rotation: rnd.Float64()*20 - 10,
			Scale:    0.9 + rnd.Float64()*0.2,
			Shade:    40 + rnd.IntN(40),
		})
	}
	return out
}
