package dto

// PaginationQuery is bound from ?limit=&offset= on list endpoints.
type PaginationQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

func (q PaginationQuery) Normalize(defaultLimit int) PaginationQuery {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// GamificationStatus is the rank summary shown next to a user on leaderboards.
type GamificationStatus struct {
	RankName      string  `json:"rank_name"`
	RankIcon      string  `json:"rank_icon"`
	RankColor     string  `json:"rank_color"`
	NextRank      string  `json:"next_rank"`
	CurrentPoints int64   `json:"current_points"`
	TargetPoints  int64   `json:"target_points"`
	Progress      float64 `json:"progress"`
	WeeklyPoints  int64   `json:"weekly_points"`
	WeeklyLabel   string  `json:"weekly_label"`
}
