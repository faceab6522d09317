package response

// PaginatedResponse wraps one page of a list endpoint.
type PaginatedResponse[T any] struct {
	Data       []T      `json:"data"`
	Pagination PageInfo `json:"pagination"`
}

type PageInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func NewPaginatedResponse[T any](data []T, page, perPage int, total int64) *PaginatedResponse[T] {
	info := PageInfo{Total: total, Page: page, PerPage: perPage}
	if perPage > 0 {
		info.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	info.HasNext = page < info.TotalPages

	if data == nil {
		data = []T{}
	}
	return &PaginatedResponse[T]{Data: data, Pagination: info}
}
