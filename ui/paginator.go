package ui

import "strconv"

// Listing page sizes. Orphans below the threshold are folded into the
// previous page so the last page is never nearly empty.
const (
	pageSize       = 10
	orphanAllowed  = 3
	maxPageButtons = 5
)

// Page describes one page of a listing
type Page struct {
	Number  int
	Total   int
	Count   int
	Offset  int
	Limit   int
	HasPrev bool
	HasNext bool
}

// NumPages returns the number of pages for count items, folding a final
// page of at most orphanAllowed items into the previous page.
func NumPages(count int) int {
	if count <= pageSize+orphanAllowed {
		return 1
	}
	pages := count / pageSize
	if count%pageSize > orphanAllowed {
		pages++
	}
	return pages
}

// Paginate resolves a raw page parameter against a total count. Non-integer
// input clamps to the first page and out-of-range input to the last.
func Paginate(rawPage string, count int) Page {
	number, err := strconv.Atoi(rawPage)
	if err != nil || number < 1 {
		number = 1
	}
	total := NumPages(count)
	if number > total {
		number = total
	}

	offset := (number - 1) * pageSize
	limit := pageSize
	if number == total {
		// Last page absorbs the orphans
		limit = count - offset
		if limit < 0 {
			limit = 0
		}
	}

	return Page{
		Number:  number,
		Total:   total,
		Count:   count,
		Offset:  offset,
		Limit:   limit,
		HasPrev: number > 1,
		HasNext: number < total,
	}
}

// Numbers returns the page numbers to render as buttons, centered on the
// current page
func (p Page) Numbers() []int {
	start := p.Number - maxPageButtons/2
	if start < 1 {
		start = 1
	}
	end := start + maxPageButtons - 1
	if end > p.Total {
		end = p.Total
		start = end - maxPageButtons + 1
		if start < 1 {
			start = 1
		}
	}
	numbers := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		numbers = append(numbers, n)
	}
	return numbers
}
