package sessions

// ---------- requests

type JumpRequest struct {
	Step *int `json:"step" binding:"required"`
}

type ReorderRequest struct {
	FromIndex *int `json:"from_index" binding:"required"`
	ToIndex   *int `json:"to_index" binding:"required"`
}
