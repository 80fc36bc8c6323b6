package entity

// Progress is the completion state of a job as seen by the client.
type Progress struct {
	Processed  int `json:"processed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}
