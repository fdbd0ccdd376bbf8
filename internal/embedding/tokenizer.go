package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	clsToken      = 101
	sepToken      = 102
	firstWordID   = 1000
	wordIDBuckets = 29000

	defaultMaxTokens = 256
)

// Encoding is the model input for one text, padded to a fixed length.
type Encoding struct {
	IDs   []int64
	Mask  []int64
	Types []int64
}

// Len returns the number of unpadded positions.
func (e Encoding) Len() int {
	n := 0
	for _, m := range e.Mask {
		n += int(m)
	}
	return n
}

// Tokenizer turns text into BERT-style model input.
type Tokenizer interface {
	Encode(text string, maxTokens int) Encoding
}

// HashTokenizer maps each word to a vocabulary bucket by hash. It needs no
// vocabulary file, so it only suits models trained with the same scheme.
type HashTokenizer struct{}

// Encode wraps the words of text in [CLS] and [SEP] and pads to maxTokens.
func (HashTokenizer) Encode(text string, maxTokens int) Encoding {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	enc := Encoding{
		IDs:   make([]int64, maxTokens),
		Mask:  make([]int64, maxTokens),
		Types: make([]int64, maxTokens),
	}
	put := func(i int, id int64) {
		enc.IDs[i] = id
		enc.Mask[i] = 1
	}

	put(0, clsToken)
	n := 1
	for _, w := range SplitWords(strings.ToLower(text)) {
		if n >= maxTokens-1 {
			break
		}
		put(n, int64(HashString(w)%wordIDBuckets)+firstWordID)
		n++
	}
	if n < maxTokens {
		put(n, sepToken)
	}
	return enc
}

// SplitWords splits text on anything that is not a letter or digit.
func SplitWords(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return nil
	}
	return words
}

// Terms returns the normalized content words of text: lowercased, stopwords
// removed, and a plural "s" stripped from words longer than three letters.
func Terms(text string) []string {
	var terms []string
	for _, w := range SplitWords(strings.ToLower(text)) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			w = w[:len(w)-1]
		}
		terms = append(terms, w)
	}
	return terms
}

// HashString returns a deterministic non-negative FNV-1a hash of s.
func HashString(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() & 0x7fffffff)
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`a an and are as at be been but by can could did do does for from
		had has have how i if in into is it its me my no not of on or our so than that the
		their them then there these they this to was we were what when where which who why
		will with would you your`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
