package dto

type InitWorkspaceResponse struct {
	Root     string   `json:"root"`
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
}

type CheckResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

type VerifyWorkspaceResponse struct {
	OK       bool            `json:"ok"`
	Failures int             `json:"failures"`
	Checks   []CheckResponse `json:"checks"`
}

type DatasetClassResponse struct {
	Name       string `json:"name"`
	Label      int    `json:"label"`
	ImageCount int    `json:"image_count"`
}

type DatasetStatsResponse struct {
	Name    string                 `json:"name"`
	Path    string                 `json:"path"`
	Classes int                    `json:"classes"`
	Images  int                    `json:"images"`
	Detail  []DatasetClassResponse `json:"detail,omitempty"`
}

type ListDatasetsResponse struct {
	Items []DatasetStatsResponse `json:"items"`
	Total int                    `json:"total"`
}
