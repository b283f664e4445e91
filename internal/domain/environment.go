package domain

// Environment describes the page and device the detector is embedded in.
type Environment struct {
	PageURL        string `json:"page_url"`
	UserAgent      string `json:"user_agent"`
	Platform       string `json:"platform"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	MaxTouchPoints int    `json:"max_touch_points"`
}
