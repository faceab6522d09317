package request

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// PageQuery is the page/per_page pair shared by list endpoints. Page is
// 1-based.
type PageQuery struct {
	Page    int `json:"page" validate:"min=1"`
	PerPage int `json:"per_page" validate:"min=1,max=100"`
}

// Limit clamps PerPage into [1, MaxPerPage].
func (p PageQuery) Limit() int {
	switch {
	case p.PerPage < 1:
		return DefaultPerPage
	case p.PerPage > MaxPerPage:
		return MaxPerPage
	}
	return p.PerPage
}

func (p PageQuery) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}
