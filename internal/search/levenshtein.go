package search

import "strings"

// Distance вычисляет расстояние Левенштейна между строками без учёта
// регистра. Сравнение ведётся по рунам, память O(min(len1, len2)).
func Distance(a, b string) int {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	if len(rb) > len(ra) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		prevDiag := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			tmp := row[j]
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			row[j] = min(row[j]+1, row[j-1]+1, prevDiag+cost)
			prevDiag = tmp
		}
	}

	return row[len(rb)]
}

// Similarity возвращает нормированную близость строк в диапазоне [0, 1]:
// (maxLen − distance) / maxLen. Для двух пустых строк возвращает 1.
func Similarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1
	}
	return float64(maxLen-Distance(a, b)) / float64(maxLen)
}
