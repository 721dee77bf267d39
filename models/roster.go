package models

type RowRejection struct {
	Row       int    `json:"row"`
	StudentID string `json:"student_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type ImportReport struct {
	BatchID         string         `json:"batch_id"`
	Accepted        int            `json:"accepted"`
	RejectedCount   int            `json:"rejected_count"`
	Rejected        []RowRejection `json:"rejected"`
	Replaced        bool           `json:"replaced"`
	Courses         int            `json:"courses"`
	FallbackRows    int            `json:"fallback_rows"`
	RegistryVersion int            `json:"registry_version"`
}
