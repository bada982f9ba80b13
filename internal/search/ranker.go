// Package search реализует нечёткий поиск по каталогу с ранжированием
// результатов и подсветкой совпадений.
package search

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Веса совпадений: точное вхождение, совпадение префикса и порог
// нечёткого совпадения по расстоянию Левенштейна.
const (
	substringScore = 10
	prefixScore    = 8
	fuzzyWeight    = 5
	fuzzyThreshold = 0.6
)

// Item описывает запись для поиска: набор текстовых полей по именам.
type Item struct {
	Fields map[string]string
}

// Span задаёт границы совпадения в байтовых смещениях исходного текста поля.
// Разметку и экранирование выполняет слой отображения.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Result содержит индекс записи во входном списке, её релевантность
// и совпадения по каждому полю.
type Result struct {
	Index      int
	Score      float64
	Highlights map[string][]Span
}

// Rank оценивает записи по свободному текстовому запросу и возвращает
// совпавшие, отсортированные по убыванию релевантности. Пустой запрос
// возвращает все записи в исходном порядке без подсветки. Входные данные
// не изменяются, функция безопасна для повторного вызова на каждый ввод.
func Rank(query string, items []Item) []Result {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))

	if len(words) == 0 {
		results := make([]Result, 0, len(items))
		for i := range items {
			results = append(results, Result{Index: i, Highlights: map[string][]Span{}})
		}
		return results
	}

	var results []Result
	for i, item := range items {
		score := 0.0
		highlights := make(map[string][]Span)

		for name, text := range item.Fields {
			lower := strings.ToLower(text)
			for _, word := range words {
				if spans := findSpans(text, word); len(spans) > 0 {
					highlights[name] = append(highlights[name], spans...)
				}

				switch {
				case strings.Contains(lower, word):
					score += substringScore
				case strings.HasPrefix(lower, word):
					score += prefixScore
				default:
					if ratio := Similarity(word, lower); ratio > fuzzyThreshold {
						score += ratio * fuzzyWeight
					}
				}
			}
		}

		if score == 0 {
			continue
		}

		results = append(results, Result{Index: i, Score: score, Highlights: highlights})
	}

	// Стабильная сортировка сохраняет исходный порядок при равных оценках.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	return results
}

// findSpans возвращает все вхождения слова в текст без учёта регистра.
// Пересекающиеся вхождения разных слов не объединяются.
func findSpans(text, word string) []Span {
	tr := []rune(text)
	wr := []rune(word)
	if len(wr) == 0 || len(wr) > len(tr) {
		return nil
	}

	lowered := make([]rune, len(tr))
	offsets := make([]int, len(tr)+1)
	off := 0
	for i, r := range tr {
		lowered[i] = unicode.ToLower(r)
		offsets[i] = off
		off += utf8.RuneLen(r)
	}
	offsets[len(tr)] = off

	var spans []Span
	for i := 0; i+len(wr) <= len(tr); i++ {
		match := true
		for j, wc := range wr {
			if lowered[i+j] != wc {
				match = false
				break
			}
		}
		if match {
			spans = append(spans, Span{Start: offsets[i], End: offsets[i+len(wr)]})
		}
	}

	return spans
}
