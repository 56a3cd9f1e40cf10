package models

// BackendPagination is the pagination block returned with every paged list.
type BackendPagination struct {
	Size      int    `json:"size"`
	Page      int    `json:"page"`
	Count     int    `json:"count"` // total matching rows
	Pages     int    `json:"pages"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
}

// NewBackendPagination derives the page count from count and size.
func NewBackendPagination(page, size, count int, sort, direction string) BackendPagination {
	pages := 0
	if size > 0 {
		pages = (count + size - 1) / size
	}
	return BackendPagination{
		Size:      size,
		Page:      page,
		Count:     count,
		Pages:     pages,
		Sort:      sort,
		Direction: direction,
	}
}

