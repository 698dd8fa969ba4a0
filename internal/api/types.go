package api

// submitBody：不带图片的 JSON 提交
type submitBody struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

type langResponse struct {
	Lang      string            `json:"lang"`
	Languages []string          `json:"languages"`
	Labels    map[string]string `json:"labels"`
}
